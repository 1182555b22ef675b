package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iliyamo/visit-counter/internal/config"
	"github.com/iliyamo/visit-counter/internal/queue"
)

// visit-logger drains the visit queue into $VISIT_LOG_DIR/visits.log.
func main() {
	_ = godotenv.Load()
	cfg := config.LoadEventsConfig()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Printf("visit-logger: queue=%q dir=%q", cfg.Queue, cfg.LogDir)
	err := queue.StartVisitConsumer(ctx, cfg.URL, cfg.Queue, queue.VisitLog{Dir: cfg.LogDir})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("visit-logger: %v", err)
	}
}
