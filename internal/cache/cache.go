package cache

import (
	"context"
	"errors"
	"time"

	"pricealert/internal/metrics"

	"github.com/redis/go-redis/v9"
)

// Cache is a thin key/value layer over Redis with per-key expiry.
type Cache struct {
	client redis.UniversalClient
	name   string
}

// NewRedisClient connects and pings.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// New returns a cache whose hit/miss counters are labelled with name.
func New(client redis.UniversalClient, name string) *Cache {
	return &Cache{client: client, name: name}
}

// Get returns the value and whether the key was present. A miss is not an error.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		metrics.CacheMissesTotal.WithLabelValues(c.name).Inc()
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	metrics.CacheHitsTotal.WithLabelValues(c.name).Inc()
	return val, true, nil
}

func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// Delete removes keys. Missing keys are ignored.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
