package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/iliyamo/visit-counter/internal/config"
)

// MemoryLimiter keeps one x/time/rate token bucket per key inside this
// process. Buckets idle for longer than the configured TTL are dropped on
// the next sweep.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*memEntry
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	lastGC  time.Time
}

type memEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func NewMemoryLimiter(cfg config.RateLimitConfig) *MemoryLimiter {
	per := cfg.RefillInterval / time.Duration(cfg.RefillTokens)
	return &MemoryLimiter{
		entries: make(map[string]*memEntry),
		limit:   rate.Every(per),
		burst:   cfg.Capacity,
		idleTTL: cfg.TTL,
		lastGC:  time.Now(),
	}
}

func (m *MemoryLimiter) Take(_ context.Context, key string) (bool, int64, time.Duration, error) {
	now := time.Now()
	lim := m.get(key, now)

	r := lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, 0, delay, nil
	}
	remaining := int64(lim.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return true, remaining, 0, nil
}

func (m *MemoryLimiter) get(key string, now time.Time) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Sub(m.lastGC) > m.idleTTL {
		m.cleanup(now)
	}
	if ent, ok := m.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}
	lim := rate.NewLimiter(m.limit, m.burst)
	m.entries[key] = &memEntry{lim: lim, lastSeen: now}
	return lim
}

// cleanup must be called with m.mu held.
func (m *MemoryLimiter) cleanup(now time.Time) {
	cutoff := now.Add(-m.idleTTL)
	for k, ent := range m.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(m.entries, k)
		}
	}
	m.lastGC = now
}

// Len reports the number of tracked buckets.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
