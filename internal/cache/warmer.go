package cache

import (
	"context"
	"log/slog"
	"time"

	"routemap/internal/domain"
)

type Resolver interface {
	Resolve(ctx context.Context, relationID string, displayType domain.DisplayType, color string) (*domain.LayerBundle, error)
}

// Warmer resolves every manifest route once at startup. Routes served from
// local data cost nothing; the others land in the remote bundle cache
// before the first page asks for them.
type Warmer struct {
	resolver Resolver
	pause    time.Duration
	logger   *slog.Logger
}

// NewWarmer creates a warmer that waits pause between routes to stay
// polite with the upstream service.
func NewWarmer(resolver Resolver, pause time.Duration, logger *slog.Logger) *Warmer {
	return &Warmer{
		resolver: resolver,
		pause:    pause,
		logger:   logger.With("component", "cache_warmer"),
	}
}

type WarmResult struct {
	Warmed int
	Failed []string
}

func (w *Warmer) WarmAll(ctx context.Context, routes []domain.Route) WarmResult {
	start := time.Now()
	w.logger.Info("starting cache warming", "routes", len(routes))

	var result WarmResult
	for i, r := range routes {
		if i > 0 && w.pause > 0 {
			select {
			case <-ctx.Done():
				w.logger.Info("cache warming interrupted", "warmed", result.Warmed)
				return result
			case <-time.After(w.pause):
			}
		}

		bundle, err := w.resolver.Resolve(ctx, r.RelationID, r.DisplayType, r.Color)
		if err != nil {
			w.logger.Debug("failed to warm route", "relation_id", r.RelationID, "error", err)
			result.Failed = append(result.Failed, r.RelationID)
			continue
		}
		w.logger.Debug("warmed route", "relation_id", r.RelationID, "source", bundle.Source)
		result.Warmed++
	}

	w.logger.Info("cache warming completed",
		"warmed", result.Warmed,
		"failed", len(result.Failed),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result
}
