package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"BubbleSentinel/internal/cache"
	"BubbleSentinel/internal/metrics"
	"BubbleSentinel/internal/model"
)

// DefaultCacheTTL bounds how stale a served series may be.
const DefaultCacheTTL = 5 * time.Minute

// CachedFetcher serves recent provider responses from a cache.
// Cache failures are logged and fall through to the wrapped fetcher.
type CachedFetcher struct {
	next    Fetcher
	cache   cache.Cache
	ttl     time.Duration
	metrics *metrics.Registry
}

// NewCachedFetcher wraps next. ttl <= 0 uses DefaultCacheTTL; reg may be nil.
func NewCachedFetcher(next Fetcher, c cache.Cache, ttl time.Duration, reg *metrics.Registry) *CachedFetcher {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedFetcher{next: next, cache: c, ttl: ttl, metrics: reg}
}

func (c *CachedFetcher) Name() string { return c.next.Name() }

func (c *CachedFetcher) key(symbol string, period model.Period) string {
	return fmt.Sprintf("series:%s:%s:%s", c.next.Name(), symbol, period)
}

func (c *CachedFetcher) FetchSeries(ctx context.Context, symbol string, period model.Period) (*model.PriceSeries, error) {
	key := c.key(symbol, period)
	b, ok, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		log.Warn().Err(err).Str("cache", c.cache.Name()).Str("key", key).Msg("cache get failed")
		c.count("error")
	case !ok:
		c.count("miss")
	default:
		var s model.PriceSeries
		if err := json.Unmarshal(b, &s); err == nil {
			c.count("hit")
			return &s, nil
		}
		log.Warn().Str("key", key).Msg("discarding undecodable cache entry")
		c.count("corrupt")
	}

	s, err := c.next.FetchSeries(ctx, symbol, period)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(s); err == nil {
		if err := c.cache.Set(ctx, key, b, c.ttl); err != nil {
			log.Warn().Err(err).Str("cache", c.cache.Name()).Str("key", key).Msg("cache set failed")
		}
	}
	return s, nil
}

func (c *CachedFetcher) count(result string) {
	if c.metrics != nil {
		c.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}
