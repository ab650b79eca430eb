package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores resolved places by rounded coordinate.
type Cache interface {
	Get(ctx context.Context, lat, lon float64) (Place, bool, error)
	Set(ctx context.Context, lat, lon float64, p Place) error
}

// CacheKey rounds the coordinate to five decimals (about a metre).
func CacheKey(lat, lon float64) string {
	return fmt.Sprintf("%.5f,%.5f", lat, lon)
}

// RedisCache keeps places in Redis with a TTL.
type RedisCache struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisCache builds a cache. A zero ttl keeps entries for 30 days.
func NewRedisCache(rdb redis.Cmdable, prefix string, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &RedisCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) key(lat, lon float64) string {
	return c.prefix + "geocode:" + CacheKey(lat, lon)
}

// Get returns the cached place, if any.
func (c *RedisCache) Get(ctx context.Context, lat, lon float64) (Place, bool, error) {
	val, err := c.rdb.Get(ctx, c.key(lat, lon)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Place{}, false, nil
	}
	if err != nil {
		return Place{}, false, fmt.Errorf("get cached place: %w", err)
	}
	var p Place
	if err := json.Unmarshal(val, &p); err != nil {
		return Place{}, false, fmt.Errorf("decode cached place: %w", err)
	}
	return p, true, nil
}

// Set stores p.
func (c *RedisCache) Set(ctx context.Context, lat, lon float64, p Place) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(lat, lon), b, c.ttl).Err()
}
