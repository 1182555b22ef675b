package counter

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// schemaOnce runs an idempotent schema statement until it succeeds once.
// Unlike sync.Once a failed attempt (database still starting) is retried on
// the next request.
type schemaOnce struct {
	mu   sync.Mutex
	done bool
}

func (s *schemaOnce) ensure(ctx context.Context, create func(context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return nil
	}
	if err := create(ctx); err != nil {
		return fmt.Errorf("ensure counters table: %w", err)
	}
	s.done = true
	return nil
}

const mysqlSchema = `CREATE TABLE IF NOT EXISTS counters (
	name VARCHAR(191) NOT NULL PRIMARY KEY,
	value BIGINT NOT NULL
)`

// LAST_INSERT_ID(expr) makes the new value come back in the OK packet, so
// the increment and the read are a single statement.
const mysqlIncrement = `INSERT INTO counters (name, value) VALUES (?, LAST_INSERT_ID(1))
ON DUPLICATE KEY UPDATE value = LAST_INSERT_ID(value + 1)`

// MySQLCounter stores the counter as a row of the counters table.
type MySQLCounter struct {
	db     *sql.DB
	key    string
	schema schemaOnce
}

func NewMySQLCounter(db *sql.DB, key string) (*MySQLCounter, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	return &MySQLCounter{db: db, key: key}, nil
}

func (c *MySQLCounter) Increment(ctx context.Context) (int64, error) {
	err := c.schema.ensure(ctx, func(ctx context.Context) error {
		_, err := c.db.ExecContext(ctx, mysqlSchema)
		return err
	})
	if err != nil {
		return 0, err
	}
	res, err := c.db.ExecContext(ctx, mysqlIncrement, c.key)
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w", c.key, err)
	}
	return res.LastInsertId()
}

func (c *MySQLCounter) Name() string { return "MySQL" }

const postgresSchema = `CREATE TABLE IF NOT EXISTS counters (
	name TEXT PRIMARY KEY,
	value BIGINT NOT NULL
)`

const postgresIncrement = `INSERT INTO counters (name, value) VALUES ($1, 1)
ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
RETURNING value`

// PgxQuerier is the subset of *pgxpool.Pool used by PostgresCounter.
type PgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresCounter stores the counter as a row of the counters table.
type PostgresCounter struct {
	pool   PgxQuerier
	key    string
	schema schemaOnce
}

func NewPostgresCounter(pool PgxQuerier, key string) (*PostgresCounter, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	return &PostgresCounter{pool: pool, key: key}, nil
}

func (c *PostgresCounter) Increment(ctx context.Context) (int64, error) {
	err := c.schema.ensure(ctx, func(ctx context.Context) error {
		_, err := c.pool.Exec(ctx, postgresSchema)
		return err
	})
	if err != nil {
		return 0, err
	}
	var v int64
	if err := c.pool.QueryRow(ctx, postgresIncrement, c.key).Scan(&v); err != nil {
		return 0, fmt.Errorf("increment %s: %w", c.key, err)
	}
	return v, nil
}

func (c *PostgresCounter) Name() string { return "PostgreSQL" }
