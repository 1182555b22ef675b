package main // Entry point package

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/visit-counter/internal/config"
	"github.com/iliyamo/visit-counter/internal/counter"
	"github.com/iliyamo/visit-counter/internal/handler"
	"github.com/iliyamo/visit-counter/internal/server"
	"github.com/iliyamo/visit-counter/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := run(cfg); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// run owns every resource of the process; its defers only execute after
// the HTTP server has drained.
func run(cfg config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// One Redis client for the process; it connects on first use.
	var rdb *redis.Client
	if cfg.CounterBackend == "redis" || (cfg.RateLimit.Enabled && cfg.RateLimit.Backend == "redis") {
		rdb = config.NewRedisClient(cfg.Redis)
		defer func() { _ = rdb.Close() }()
	}

	visits, closeCounter, err := counter.New(ctx, cfg, rdb)
	if err != nil {
		return fmt.Errorf("counter: %w", err)
	}
	defer closeCounter()

	var pub handler.VisitPublisher
	if cfg.Events.Enabled {
		pub = service.NewVisitPublisher(cfg.Events.URL, cfg.Events.Queue)
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.New(cfg, visits, pub, rdb),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", srv.Addr, err)
	}

	log.Printf("%s listening on %s (env=%s)", cfg.AppName, srv.Addr, cfg.Env)
	log.Printf("counter: backend=%s key=%q timeout=%s", visits.Name(), cfg.CounterKey, cfg.CounterTimeout)
	if rdb != nil {
		log.Printf("redis: addr=%s db=%d tls=%v", cfg.Redis.Addr, cfg.Redis.DB, cfg.Redis.TLS)
	}
	log.Printf("rate-limit: enabled=%v backend=%s capacity=%d", cfg.RateLimit.Enabled, cfg.RateLimit.Backend, cfg.RateLimit.Capacity)
	log.Printf("visit-events: enabled=%v queue=%q", cfg.Events.Enabled, cfg.Events.Queue)

	if err := server.Serve(ctx, srv, ln, 10*time.Second); err != nil {
		return err
	}
	log.Printf("%s stopped", cfg.AppName)
	return nil
}
