package counter

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisCounter keeps the counter under a plain Redis key and relies on INCR
// for atomicity across any number of replicas.
type RedisCounter struct {
	rdb redis.Cmdable
	key string
}

func NewRedisCounter(rdb redis.Cmdable, key string) (*RedisCounter, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	return &RedisCounter{rdb: rdb, key: key}, nil
}

func (c *RedisCounter) Increment(ctx context.Context) (int64, error) {
	return c.rdb.Incr(ctx, c.key).Result()
}

func (c *RedisCounter) Name() string { return "Redis" }
