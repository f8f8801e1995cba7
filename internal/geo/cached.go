package geo

import (
	"context"
	"log/slog"
	"portfolio/internal/cache"
	"portfolio/internal/metrics"
	"portfolio/internal/types"
)

// Cached remembers successful lookups of next in store. Failures are not
// cached so the next request retries.
type Cached struct {
	next  Locator
	store cache.Store[types.GeoInfo]
}

func NewCached(next Locator, store cache.Store[types.GeoInfo]) *Cached {
	return &Cached{next: next, store: store}
}

func (c *Cached) Lookup(ctx context.Context, ip string) (types.GeoInfo, error) {
	if IsPrivate(ip) {
		metrics.GeoLookups.WithLabelValues("private").Inc()
		return types.GeoInfo{}, nil
	}

	info, ok, err := c.store.Get(ctx, ip)
	if err != nil {
		slog.Warn("Geo cache read failed", "error", err)
	} else if ok {
		metrics.GeoLookups.WithLabelValues("cache_hit").Inc()
		return info, nil
	}

	info, err = c.next.Lookup(ctx, ip)
	if err != nil {
		metrics.GeoLookups.WithLabelValues("error").Inc()
		return types.GeoInfo{}, err
	}
	metrics.GeoLookups.WithLabelValues("resolved").Inc()

	if err := c.store.Set(ctx, ip, info); err != nil {
		slog.Warn("Geo cache write failed", "error", err)
	}
	return info, nil
}
