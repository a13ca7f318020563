package manifest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"routemap/internal/domain"
)

// Catalog holds the manifest loaded at startup. A failed load leaves an
// empty manifest and the catalog not ready.
type Catalog struct {
	loader *Loader
	logger *slog.Logger

	mu       sync.RWMutex
	manifest *domain.Manifest
	loadedAt time.Time
	ready    bool
}

func NewCatalog(loader *Loader, logger *slog.Logger) *Catalog {
	return &Catalog{
		loader:   loader,
		logger:   logger.With("component", "manifest"),
		manifest: &domain.Manifest{},
	}
}

func (c *Catalog) Load(ctx context.Context) error {
	start := time.Now()
	m, err := c.loader.Load(ctx)
	if err != nil {
		c.logger.Error("failed to load route manifest", "url", c.loader.url, "error", err)
		return err
	}

	c.mu.Lock()
	c.manifest = m
	c.loadedAt = time.Now()
	c.ready = true
	c.mu.Unlock()

	c.logger.Info("route manifest loaded",
		"routes", len(m.Routes),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (c *Catalog) Manifest() *domain.Manifest {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.manifest
}

func (c *Catalog) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

func (c *Catalog) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}
