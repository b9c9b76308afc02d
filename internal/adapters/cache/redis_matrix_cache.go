package cache

import (
	"context"
	"errors"
	"fleet-route-planner/internal/domain"
	"fleet-route-planner/internal/platform/obs"
	"fleet-route-planner/internal/ports"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisMatrixCache keeps matrices in Redis so several planner instances
// share one set of external lookups.
type RedisMatrixCache struct {
	rdb    *redis.Client
	prefix string
}

var _ ports.MatrixCache = (*RedisMatrixCache)(nil)

func NewRedisMatrixCache(rdb *redis.Client) *RedisMatrixCache {
	return &RedisMatrixCache{rdb: rdb, prefix: "frp:"}
}

// NewRedisMatrixCacheFromURL connects to the Redis server at url and pings it.
func NewRedisMatrixCacheFromURL(ctx context.Context, url string) (*RedisMatrixCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis matrix cache: parse url: %w", err)
	}
	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis matrix cache: ping: %w", err)
	}
	return NewRedisMatrixCache(rdb), nil
}

func (c *RedisMatrixCache) Close() error { return c.rdb.Close() }

// Get reads key and resets its TTL in one round trip.
func (c *RedisMatrixCache) Get(ctx context.Context, key string, ttl time.Duration) (_ *domain.Matrix, _ bool, err error) {
	defer obs.Time(ctx, "matrix.cache.redis.Get")(&err)

	b, err := c.rdb.GetEx(ctx, c.prefix+key, ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get matrix cache: %w", err)
	}

	m, err := decodeMatrix(b)
	if err != nil {
		return nil, false, fmt.Errorf("get matrix cache key=%q: %w", key, err)
	}
	return m, true, nil
}

func (c *RedisMatrixCache) Put(ctx context.Context, key string, m *domain.Matrix, ttl time.Duration) error {
	payload, err := encodeMatrix(m)
	if err != nil {
		return fmt.Errorf("insert matrix cache: %w", err)
	}
	if err := c.rdb.Set(ctx, c.prefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("insert matrix cache key=%q: %w", key, err)
	}
	return nil
}
