package links

import (
	"context"
	"time"

	"github.com/SteelMorgan/chatlog-notifier/internal/domain"
	"github.com/SteelMorgan/chatlog-notifier/internal/metrics"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// CachedResolver memoizes successful lookups of the wrapped Resolver.
// Concurrent lookups of the same id share one request. Failures are not cached.
type CachedResolver struct {
	next    Resolver
	cache   Cache
	group   singleflight.Group
	metrics *metrics.Pipeline
}

// NewCachedResolver wraps next with cache. A nil cache means a fresh MemoryCache.
func NewCachedResolver(next Resolver, cache Cache, m *metrics.Pipeline) *CachedResolver {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &CachedResolver{next: next, cache: cache, metrics: m}
}

// Resolve implements Resolver
func (c *CachedResolver) Resolve(ctx context.Context, kind domain.LinkKind, id string) (string, error) {
	if text, ok := c.cache.Get(kind, id); ok {
		c.metrics.RecordLookup(metrics.LookupResultCacheHit, 0)
		return text, nil
	}

	v, err, _ := c.group.Do(makeKey(kind, id), func() (interface{}, error) {
		start := time.Now()
		text, err := c.next.Resolve(ctx, kind, id)
		if err != nil {
			c.metrics.RecordLookup(metrics.LookupResultFailed, time.Since(start))
			return "", err
		}
		c.metrics.RecordLookup(metrics.LookupResultResolved, time.Since(start))

		if err := c.cache.Put(kind, id, text); err != nil {
			log.Warn().Err(err).Str("link_id", id).Msg("Failed to cache resolved link")
		}
		return text, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Close closes the underlying cache
func (c *CachedResolver) Close() error {
	return c.cache.Close()
}
