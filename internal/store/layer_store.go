package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"routemap/internal/domain"
)

// Resolver produces a layer bundle for a route on a cache miss
type Resolver interface {
	Resolve(ctx context.Context, relationID string, displayType domain.DisplayType, color string) (*domain.LayerBundle, error)
}

// MapSurface is the rendering target layers are attached to
type MapSurface interface {
	AddLayer(bundle *domain.LayerBundle) error
	RemoveLayer(layerID string)
	HasLayer(layerID string) bool
}

// LayerStore owns the per-page route cache and the set of routes currently
// on the map. The cache is never evicted; the active set is always a subset
// of it.
//
// The mutex only guards map access. It is not held while a route resolves,
// so two concurrent shows of an uncached route may both resolve; the later
// one wins.
type LayerStore struct {
	mu     sync.RWMutex
	cache  map[string]*domain.LayerBundle
	active map[string]*domain.LayerBundle

	resolver Resolver
	surface  MapSurface

	hits     atomic.Int64
	misses   atomic.Int64
	attached atomic.Int64
}

func NewLayerStore(resolver Resolver, surface MapSurface) *LayerStore {
	return &LayerStore{
		cache:    make(map[string]*domain.LayerBundle),
		active:   make(map[string]*domain.LayerBundle),
		resolver: resolver,
		surface:  surface,
	}
}

// Show puts the route on the map, resolving it on first use.
func (s *LayerStore) Show(ctx context.Context, route domain.Route) error {
	id := route.RelationID

	s.mu.RLock()
	_, isActive := s.active[id]
	cached, isCached := s.cache[id]
	s.mu.RUnlock()

	if isActive {
		return nil
	}

	bundle := cached
	if isCached {
		s.hits.Add(1)
	} else {
		s.misses.Add(1)
		resolved, err := s.resolver.Resolve(ctx, id, route.DisplayType, route.Color)
		if err != nil {
			return fmt.Errorf("show route %s: %w", id, err)
		}
		bundle = resolved

		s.mu.Lock()
		s.cache[id] = bundle
		s.mu.Unlock()
	}

	if err := s.surface.AddLayer(bundle); err != nil {
		return fmt.Errorf("show route %s: attach layer: %w", id, err)
	}
	s.attached.Add(1)

	s.mu.Lock()
	s.active[id] = bundle
	s.mu.Unlock()

	return nil
}

// Hide detaches the route from the map. Hiding a route that is not shown
// is a no-op. The cache is left untouched.
func (s *LayerStore) Hide(relationID string) {
	s.mu.Lock()
	bundle, ok := s.active[relationID]
	delete(s.active, relationID)
	s.mu.Unlock()

	if ok && s.surface.HasLayer(bundle.ID) {
		s.surface.RemoveLayer(bundle.ID)
	}
}

func (s *LayerStore) IsActive(relationID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.active[relationID]
	return ok
}

func (s *LayerStore) IsCached(relationID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cache[relationID]
	return ok
}

// ActiveIDs returns the relation ids currently shown, sorted
func (s *LayerStore) ActiveIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.active))
	for id := range s.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ActiveLayers returns the bundles currently shown
func (s *LayerStore) ActiveLayers() []*domain.LayerBundle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.LayerBundle, 0, len(s.active))
	for _, b := range s.active {
		result = append(result, b)
	}
	return result
}

type LayerStats struct {
	Cached      int   `json:"cached"`
	Active      int   `json:"active"`
	CacheHits   int64 `json:"cacheHits"`
	CacheMisses int64 `json:"cacheMisses"`
	Attached    int64 `json:"attached"`
}

func (s *LayerStore) Stats() LayerStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return LayerStats{
		Cached:      len(s.cache),
		Active:      len(s.active),
		CacheHits:   s.hits.Load(),
		CacheMisses: s.misses.Load(),
		Attached:    s.attached.Load(),
	}
}
