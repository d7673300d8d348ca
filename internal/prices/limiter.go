package prices

import (
	"context"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// Limiter blocks until one more upstream request under key is allowed.
type Limiter interface {
	Wait(ctx context.Context, key string) error
}

// RedisLimiter is a GCRA limiter shared by every process talking to the same Redis.
type RedisLimiter struct {
	limiter *redis_rate.Limiter
	limit   redis_rate.Limit
	prefix  string
}

// NewRedisLimiter allows perSecond requests per key. It returns a nil Limiter for
// perSecond <= 0, which fetchers treat as unlimited.
func NewRedisLimiter(rdb redis.UniversalClient, perSecond int) Limiter {
	if perSecond <= 0 {
		return nil
	}
	return &RedisLimiter{
		limiter: redis_rate.NewLimiter(rdb),
		limit:   redis_rate.PerSecond(perSecond),
		prefix:  "upstream:",
	}
}

func (l *RedisLimiter) Wait(ctx context.Context, key string) error {
	for {
		res, err := l.limiter.Allow(ctx, l.prefix+key, l.limit)
		if err != nil {
			return err
		}
		if res.Allowed > 0 {
			return nil
		}
		wait := res.RetryAfter
		if wait <= 0 {
			wait = 10 * time.Millisecond
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
