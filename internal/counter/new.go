package counter

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/visit-counter/internal/config"
	"github.com/iliyamo/visit-counter/internal/database"
)

// New builds the counter selected by cfg.CounterBackend. rdb is used by the
// redis backend and may be nil otherwise. The returned close function
// releases the SQL pool, if one was opened; the Redis client is owned by
// the caller. No backend contacts its server here.
func New(ctx context.Context, cfg config.Config, rdb *redis.Client) (Counter, func(), error) {
	noop := func() {}
	switch cfg.CounterBackend {
	case "redis":
		if rdb == nil {
			return nil, noop, errors.New("redis backend: nil client")
		}
		c, err := NewRedisCounter(rdb, cfg.CounterKey)
		return c, noop, err
	case "mysql":
		dsn := database.MySQLDSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.CounterTimeout)
		db, err := database.OpenMySQL(dsn)
		if err != nil {
			return nil, noop, fmt.Errorf("open mysql: %w", err)
		}
		c, err := NewMySQLCounter(db, cfg.CounterKey)
		if err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		return c, func() { _ = db.Close() }, nil
	case "postgres":
		pool, err := database.OpenPostgres(ctx, cfg.DatabaseURL, cfg.CounterTimeout)
		if err != nil {
			return nil, noop, fmt.Errorf("open postgres: %w", err)
		}
		c, err := NewPostgresCounter(pool, cfg.CounterKey)
		if err != nil {
			pool.Close()
			return nil, noop, err
		}
		return c, pool.Close, nil
	}
	return nil, noop, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.CounterBackend)
}
