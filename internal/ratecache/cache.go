package ratecache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/gyeh/remitcheck/internal/model"
)

// ComputeFunc produces the quote for a key on a cache miss.
type ComputeFunc func(ctx context.Context) (model.RateQuote, error)

// Stats are cumulative cache counters.
type Stats struct {
	Hits     int64
	Misses   int64
	Computes int64
	Errors   int64
}

// Cache memoizes quotes in a Store. Concurrent misses on one key share a
// single compute. Compute errors are returned to every waiter and not stored.
type Cache struct {
	store Store
	ttl   time.Duration
	log   zerolog.Logger
	group singleflight.Group

	hits, misses, computes, errs atomic.Int64
}

// New creates a Cache over store. A non-positive ttl means DefaultTTL.
func New(store Store, ttl time.Duration, log zerolog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		store: store,
		ttl:   ttl,
		log:   log.With().Str("component", "ratecache").Logger(),
	}
}

// GetOrCompute returns the stored quote for key, computing and storing it
// on a miss.
func (c *Cache) GetOrCompute(ctx context.Context, key Key, compute ComputeFunc) (model.RateQuote, error) {
	k := key.String()
	if q, ok := c.lookup(ctx, k); ok {
		c.hits.Add(1)
		return q, nil
	}
	c.misses.Add(1)

	v, err, _ := c.group.Do(k, func() (any, error) {
		// Another flight may have filled the entry between our lookup and Do.
		if q, ok := c.lookup(ctx, k); ok {
			return q, nil
		}
		c.computes.Add(1)
		q, err := compute(ctx)
		if err != nil {
			c.errs.Add(1)
			return model.RateQuote{}, err
		}
		if err := c.store.Set(ctx, k, q, c.ttl); err != nil {
			c.log.Warn().Err(err).Str("key", k).Msg("cache store failed; serving computed quote")
		}
		return q, nil
	})
	if err != nil {
		return model.RateQuote{}, fmt.Errorf("compute %s: %w", k, err)
	}
	return v.(model.RateQuote), nil
}

// lookup treats store errors as misses so a flaky backend degrades to recomputation.
func (c *Cache) lookup(ctx context.Context, k string) (model.RateQuote, bool) {
	q, ok, err := c.store.Get(ctx, k)
	if err != nil {
		c.log.Warn().Err(err).Str("key", k).Msg("cache read failed")
		return model.RateQuote{}, false
	}
	return q, ok
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Computes: c.computes.Load(),
		Errors:   c.errs.Load(),
	}
}
