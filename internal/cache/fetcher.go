package cache

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"routemap/internal/domain"
	"routemap/internal/fetcher"
)

// BundleStore is the subset of RedisCache the cached fetcher needs
type BundleStore interface {
	GetBundle(ctx context.Context, key string) (*domain.LayerBundle, error)
	SetBundle(ctx context.Context, key string, bundle *domain.LayerBundle, ttl time.Duration) error
}

// CachedFetcher puts a shared bundle cache in front of a fetcher. Cache
// errors are logged and never fail a fetch.
type CachedFetcher struct {
	next   fetcher.Fetcher
	store  BundleStore
	ttl    time.Duration
	logger *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

func NewCachedFetcher(next fetcher.Fetcher, store BundleStore, ttl time.Duration, logger *slog.Logger) *CachedFetcher {
	return &CachedFetcher{
		next:   next,
		store:  store,
		ttl:    ttl,
		logger: logger.With("component", "cached_fetcher", "source", next.Source()),
	}
}

func (f *CachedFetcher) Source() domain.Source {
	return f.next.Source()
}

func (f *CachedFetcher) Fetch(ctx context.Context, relationID string, displayType domain.DisplayType, color string) (*domain.LayerBundle, error) {
	key := KeyBundle(f.next.Source(), relationID, displayType, color)

	cached, err := f.store.GetBundle(ctx, key)
	if err != nil {
		f.logger.Warn("cache read failed", "key", key, "error", err)
	}
	if cached != nil {
		f.hits.Add(1)
		return cached.WithNewID(), nil
	}
	f.misses.Add(1)

	bundle, err := f.next.Fetch(ctx, relationID, displayType, color)
	if err != nil {
		return nil, err
	}

	if err := f.store.SetBundle(ctx, key, bundle, f.ttl); err != nil {
		f.logger.Warn("cache write failed", "key", key, "error", err)
	}
	return bundle, nil
}

type FetcherStats struct {
	Hits   int64   `json:"hits"`
	Misses int64   `json:"misses"`
	Ratio  float64 `json:"hit_ratio"`
}

func (f *CachedFetcher) Stats() FetcherStats {
	hits := f.hits.Load()
	misses := f.misses.Load()
	var ratio float64
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return FetcherStats{Hits: hits, Misses: misses, Ratio: ratio}
}
