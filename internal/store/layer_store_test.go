package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"routemap/internal/domain"
	"routemap/internal/fetcher"
)

type fakeSurface struct {
	mu      sync.Mutex
	layers  map[string]*domain.LayerBundle
	failAdd bool
	removes int
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{layers: make(map[string]*domain.LayerBundle)}
}

func (f *fakeSurface) AddLayer(b *domain.LayerBundle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAdd {
		return errors.New("surface closed")
	}
	f.layers[b.ID] = b
	return nil
}

func (f *fakeSurface) RemoveLayer(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removes++
	delete(f.layers, id)
}

func (f *fakeSurface) HasLayer(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.layers[id]
	return ok
}

func (f *fakeSurface) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.layers)
}

type countingResolver struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
}

func newCountingResolver() *countingResolver {
	return &countingResolver{calls: make(map[string]int), fail: make(map[string]bool)}
}

func (r *countingResolver) Resolve(ctx context.Context, relationID string, displayType domain.DisplayType, color string) (*domain.LayerBundle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[relationID]++
	if r.fail[relationID] {
		return nil, &fetcher.FetchError{Source: domain.SourceBoth, RelationID: relationID, Reason: fetcher.ReasonBothFailed}
	}
	b := domain.NewBundleBuilder(relationID, domain.SourceLocal, color)
	b.AddLine([]domain.LatLng{{1, 2}, {3, 4}})
	return b.Build(), nil
}

func route(id string) domain.Route {
	return domain.Route{RelationID: id, DisplayType: domain.DisplayWaysWithPoints, Color: "red", Name: "Route " + id}
}

func TestShowResolvesOnce(t *testing.T) {
	res := newCountingResolver()
	surface := newFakeSurface()
	s := NewLayerStore(res, surface)
	ctx := context.Background()

	if err := s.Show(ctx, route("123")); err != nil {
		t.Fatalf("first Show: %v", err)
	}
	if err := s.Show(ctx, route("123")); err != nil {
		t.Fatalf("second Show: %v", err)
	}
	if res.calls["123"] != 1 {
		t.Errorf("resolver called %d times, want 1", res.calls["123"])
	}
	if surface.count() != 1 {
		t.Errorf("surface has %d layers, want 1", surface.count())
	}

	s.Hide("123")
	if err := s.Show(ctx, route("123")); err != nil {
		t.Fatalf("Show after Hide: %v", err)
	}
	if res.calls["123"] != 1 {
		t.Errorf("re-show should be served from cache, resolver called %d times", res.calls["123"])
	}

	stats := s.Stats()
	if stats.CacheMisses != 1 || stats.CacheHits != 1 || stats.Cached != 1 || stats.Active != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestShowFailureLeavesStateUnchanged(t *testing.T) {
	res := newCountingResolver()
	res.fail["9"] = true
	surface := newFakeSurface()
	s := NewLayerStore(res, surface)

	err := s.Show(context.Background(), route("9"))

	var fe *fetcher.FetchError
	if !errors.As(err, &fe) || fe.Reason != fetcher.ReasonBothFailed {
		t.Fatalf("expected both-sources-failed FetchError, got %v", err)
	}
	if s.IsCached("9") || s.IsActive("9") {
		t.Error("failed show must not modify cache or active set")
	}
	if surface.count() != 0 {
		t.Error("failed show must not attach anything")
	}
}

func TestShowHideInverse(t *testing.T) {
	tests := []struct {
		name      string
		prewarmed bool
	}{
		{name: "cold cache", prewarmed: false},
		{name: "warm cache", prewarmed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			surface := newFakeSurface()
			s := NewLayerStore(newCountingResolver(), surface)
			ctx := context.Background()

			if tt.prewarmed {
				s.Show(ctx, route("1"))
				s.Hide("1")
			}

			if err := s.Show(ctx, route("1")); err != nil {
				t.Fatalf("Show: %v", err)
			}
			s.Hide("1")

			if s.IsActive("1") {
				t.Error("route still active after Hide")
			}
			if !s.IsCached("1") {
				t.Error("Hide must not evict the cache")
			}
			if surface.count() != 0 {
				t.Errorf("surface still has %d layers", surface.count())
			}
		})
	}
}

func TestHideUnknownIsNoop(t *testing.T) {
	surface := newFakeSurface()
	s := NewLayerStore(newCountingResolver(), surface)

	s.Hide("404")

	if surface.removes != 0 {
		t.Error("hiding an unknown route should not touch the surface")
	}
}

func TestAttachFailureKeepsRouteInactive(t *testing.T) {
	surface := newFakeSurface()
	surface.failAdd = true
	res := newCountingResolver()
	s := NewLayerStore(res, surface)

	if err := s.Show(context.Background(), route("3")); err == nil {
		t.Fatal("expected attach error")
	}
	if s.IsActive("3") {
		t.Error("route must not be active when attach failed")
	}
	if !s.IsCached("3") {
		t.Error("resolved bundle should stay cached")
	}

	surface.failAdd = false
	if err := s.Show(context.Background(), route("3")); err != nil {
		t.Fatalf("retry Show: %v", err)
	}
	if res.calls["3"] != 1 {
		t.Errorf("retry should come from cache, resolver called %d times", res.calls["3"])
	}
}

func TestActiveIDsSorted(t *testing.T) {
	s := NewLayerStore(newCountingResolver(), newFakeSurface())
	ctx := context.Background()
	for _, id := range []string{"30", "10", "20"} {
		if err := s.Show(ctx, route(id)); err != nil {
			t.Fatal(err)
		}
	}

	got := s.ActiveIDs()
	want := []string{"10", "20", "30"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ActiveIDs = %v, want %v", got, want)
		}
	}
	if len(s.ActiveLayers()) != 3 {
		t.Errorf("ActiveLayers len = %d", len(s.ActiveLayers()))
	}
}

func TestHideWhenSurfaceLostLayer(t *testing.T) {
	surface := newFakeSurface()
	s := NewLayerStore(newCountingResolver(), surface)
	ctx := context.Background()

	if err := s.Show(ctx, route("7")); err != nil {
		t.Fatal(err)
	}

	surface.mu.Lock()
	for id := range surface.layers {
		delete(surface.layers, id)
	}
	surface.mu.Unlock()

	s.Hide("7")

	if surface.removes != 0 {
		t.Errorf("removes = %d, want 0 for a layer the surface no longer has", surface.removes)
	}
	if s.IsActive("7") {
		t.Error("route should leave the active set")
	}
	if !s.IsCached("7") {
		t.Error("route should stay cached")
	}
}
