// Package counter talks to the external store that owns the visit counter.
// The service keeps no copy of the value: every call is one atomic
// increment-and-return executed by the store itself.
package counter

import (
	"context"
	"errors"
	"regexp"
)

var (
	// ErrUnknownBackend is returned by New for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown counter backend")
	// ErrInvalidKey is returned when a counter key cannot be used as a
	// key or table row name.
	ErrInvalidKey = errors.New("invalid counter key")
)

// Counter increments a single named integer held by an external store.
// Implementations must be safe for concurrent use; Increment returns the
// value after the increment.
type Counter interface {
	Increment(ctx context.Context) (int64, error)
	// Name is the human name of the backing store, e.g. "Redis".
	Name() string
}

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_.:\-]{1,191}$`)

func validKey(key string) error {
	if !keyPattern.MatchString(key) {
		return ErrInvalidKey
	}
	return nil
}
