package collector

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"TradeDeck/internal/model"
)

type cacheEntry struct {
	bars    []model.OHLCV
	expires time.Time
}

// CachedFetcher keeps successful series responses for a TTL that depends on the
// route kind. Failures are never cached. Concurrent misses for the same key
// share one upstream call.
type CachedFetcher struct {
	Next        SeriesFetcher
	IntradayTTL time.Duration
	DailyTTL    time.Duration

	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
	flight  singleflight.Group
}

// NewCachedFetcher wraps next with a response cache.
func NewCachedFetcher(next SeriesFetcher, intradayTTL, dailyTTL time.Duration) *CachedFetcher {
	return &CachedFetcher{
		Next:        next,
		IntradayTTL: intradayTTL,
		DailyTTL:    dailyTTL,
		entries:     make(map[string]cacheEntry),
		now:         time.Now,
	}
}

func (c *CachedFetcher) Name() string { return c.Next.Name() }

func (c *CachedFetcher) FetchSeries(ctx context.Context, symbol, interval string) ([]model.OHLCV, error) {
	route, err := ResolveRoute(interval)
	if err != nil {
		return c.Next.FetchSeries(ctx, symbol, interval)
	}
	ttl := c.IntradayTTL
	if route.Kind == KindDaily {
		ttl = c.DailyTTL
	}
	key := symbol + "|" + interval

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.now().Before(e.expires) {
		c.mu.Unlock()
		return append([]model.OHLCV(nil), e.bars...), nil
	}
	c.mu.Unlock()

	// the shared call must outlive any single caller's cancellation
	flightCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(key, func() (interface{}, error) {
		bars, err := c.Next.FetchSeries(flightCtx, symbol, interval)
		if err != nil {
			return nil, err
		}
		if ttl > 0 {
			c.mu.Lock()
			c.entries[key] = cacheEntry{bars: append([]model.OHLCV(nil), bars...), expires: c.now().Add(ttl)}
			c.mu.Unlock()
		}
		return bars, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return append([]model.OHLCV(nil), res.Val.([]model.OHLCV)...), nil
	}
}

// Invalidate drops the cached series for symbol at interval.
func (c *CachedFetcher) Invalidate(symbol, interval string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, symbol+"|"+interval)
}

// Purge removes expired entries and returns how many were dropped.
func (c *CachedFetcher) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of cached series.
func (c *CachedFetcher) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
