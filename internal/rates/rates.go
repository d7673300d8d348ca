// Package rates caches slow-moving currency conversion rates between evaluation cycles.
package rates

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pricealert/internal/metrics"

	"golang.org/x/sync/singleflight"
)

// ErrRateUnavailable is returned when a rate could not be fetched and nothing fresh is cached.
var ErrRateUnavailable = errors.New("exchange rate unavailable")

// Pair is a conversion direction, From→To.
type Pair struct {
	From string
	To   string
}

func (p Pair) String() string { return p.From + "-" + p.To }

// Fetcher returns the current price of one unit of From in To.
type Fetcher interface {
	Rate(ctx context.Context, from, to string) (float64, error)
}

type entry struct {
	rate      float64
	fetchedAt time.Time
}

// Cache keeps each fetched rate for ttl. Concurrent misses on one pair share a single fetch.
type Cache struct {
	fetcher Fetcher
	ttl     time.Duration

	mu      sync.Mutex
	entries map[Pair]entry
	group   singleflight.Group
}

func NewCache(fetcher Fetcher, ttl time.Duration) *Cache {
	return &Cache{
		fetcher: fetcher,
		ttl:     ttl,
		entries: make(map[Pair]entry),
	}
}

// GetOrFetch returns the cached rate if it was fetched less than ttl before now, otherwise
// fetches and stores it stamped with now. An expired entry is never served after a failed refresh.
func (c *Cache) GetOrFetch(ctx context.Context, pair Pair, now time.Time) (float64, error) {
	if pair.From == pair.To {
		return 1, nil
	}

	c.mu.Lock()
	e, ok := c.entries[pair]
	c.mu.Unlock()
	if ok && now.Sub(e.fetchedAt) < c.ttl {
		metrics.CacheHitsTotal.WithLabelValues("fx").Inc()
		return e.rate, nil
	}
	metrics.CacheMissesTotal.WithLabelValues("fx").Inc()

	v, err, _ := c.group.Do(pair.String(), func() (any, error) {
		c.mu.Lock()
		e, ok := c.entries[pair]
		c.mu.Unlock()
		if ok && now.Sub(e.fetchedAt) < c.ttl {
			return e.rate, nil
		}

		rate, err := c.fetcher.Rate(ctx, pair.From, pair.To)
		if err != nil {
			return 0.0, err
		}
		if rate <= 0 {
			return 0.0, fmt.Errorf("non-positive rate %v", rate)
		}
		c.mu.Lock()
		c.entries[pair] = entry{rate: rate, fetchedAt: now}
		c.mu.Unlock()
		return rate, nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrRateUnavailable, pair, err)
	}
	return v.(float64), nil
}
