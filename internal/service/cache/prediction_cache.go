package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/internal/domain/repository"
	pkgcache "StockCast/pkg/cache"

	"golang.org/x/sync/singleflight"
)

// PredictionCache memoizes ensemble results per (symbol, horizon,
// n_lags, window_size) key with a fixed TTL. Concurrent callers for
// the same key are coalesced through singleflight, so one computation
// runs while the rest wait for its result. Entries are replaced
// atomically as a whole and evicted lazily on the first read past TTL.
type PredictionCache struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]cacheEntry
	group   singleflight.Group
	l2      pkgcache.Service
	metrics repository.Metrics
}

type cacheEntry struct {
	result    *models.EnsembleResult
	createdAt time.Time
}

// Option configures PredictionCache.
type Option func(*PredictionCache)

// WithL2 attaches a second-level cache (Redis) so warm results survive
// restarts.
func WithL2(l2 pkgcache.Service) Option {
	return func(c *PredictionCache) { c.l2 = l2 }
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m repository.Metrics) Option {
	return func(c *PredictionCache) { c.metrics = m }
}

// NewPredictionCache creates a cache with the given TTL.
func NewPredictionCache(ttl time.Duration, opts ...Option) *PredictionCache {
	c := &PredictionCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key builds the canonical cache key.
func Key(symbol string, horizon, nLags, windowSize int) string {
	return fmt.Sprintf("forecast:%s:%d:%d:%d", symbol, horizon, nLags, windowSize)
}

// GetOrCompute returns the live entry for key, or runs compute once
// and stores its result. A nil result ("forecast unavailable") is not
// cached, so the next caller retries. Lookups never error on cache
// state; a stale entry is simply evicted and recomputed.
func (c *PredictionCache) GetOrCompute(ctx context.Context, key string, compute func(context.Context) (*models.EnsembleResult, error)) (*models.EnsembleResult, bool, error) {
	if res, ok := c.lookup(ctx, key); ok {
		c.record("hit")
		return res, true, nil
	}
	c.record("miss")

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Re-check under the flight: another caller may have stored
		// the entry between our miss and acquiring the flight.
		if res, ok := c.lookup(ctx, key); ok {
			return res, nil
		}
		res, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if res != nil {
			c.store(ctx, key, res)
		}
		return res, nil
	})
	if err != nil {
		return nil, false, err
	}
	if v == nil {
		return nil, false, nil
	}
	return v.(*models.EnsembleResult), false, nil
}

// Invalidate drops the entry for key in both levels.
func (c *PredictionCache) Invalidate(ctx context.Context, key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	if c.l2 != nil {
		_ = c.l2.Delete(ctx, key)
	}
}

func (c *PredictionCache) lookup(ctx context.Context, key string) (*models.EnsembleResult, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		if time.Since(e.createdAt) < c.ttl {
			return e.result, true
		}
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		c.record("evict")
		return nil, false
	}

	if c.l2 == nil {
		return nil, false
	}
	var res models.EnsembleResult
	if err := c.l2.Get(ctx, key, &res); err != nil {
		return nil, false
	}
	// Promote; the remaining TTL is approximated from ComputedAt.
	age := time.Since(res.ComputedAt)
	if age >= c.ttl {
		return nil, false
	}
	c.mu.Lock()
	c.entries[key] = cacheEntry{result: &res, createdAt: res.ComputedAt}
	c.mu.Unlock()
	return &res, true
}

func (c *PredictionCache) store(ctx context.Context, key string, res *models.EnsembleResult) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{result: res, createdAt: time.Now()}
	c.mu.Unlock()
	if c.l2 != nil {
		_ = c.l2.Set(ctx, key, res, c.ttl)
	}
}

func (c *PredictionCache) record(op string) {
	if c.metrics != nil {
		c.metrics.RecordCacheOp(op)
	}
}
