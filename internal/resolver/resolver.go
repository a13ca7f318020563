package resolver

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"routemap/internal/domain"
	"routemap/internal/fetcher"
)

// Resolver tries the primary fetcher and falls back to the secondary one
// only after the primary has failed. Results never mix sources.
type Resolver struct {
	primary   fetcher.Fetcher
	secondary fetcher.Fetcher
	logger    *slog.Logger

	stats Stats
}

type Stats struct {
	primaryHits   atomic.Int64
	secondaryHits atomic.Int64
	failures      atomic.Int64
}

type StatsSnapshot struct {
	Local    int64 `json:"local"`
	Remote   int64 `json:"remote"`
	Failures int64 `json:"failures"`
}

func New(primary, secondary fetcher.Fetcher, logger *slog.Logger) *Resolver {
	return &Resolver{
		primary:   primary,
		secondary: secondary,
		logger:    logger.With("component", "resolver"),
	}
}

func (r *Resolver) Resolve(ctx context.Context, relationID string, displayType domain.DisplayType, color string) (*domain.LayerBundle, error) {
	bundle, primaryErr := r.primary.Fetch(ctx, relationID, displayType, color)
	if primaryErr == nil {
		r.stats.primaryHits.Add(1)
		return bundle, nil
	}

	r.logger.Warn("primary source failed, falling back",
		"relation_id", relationID,
		"primary", r.primary.Source(),
		"secondary", r.secondary.Source(),
		"error", primaryErr,
	)

	bundle, secondaryErr := r.secondary.Fetch(ctx, relationID, displayType, color)
	if secondaryErr == nil {
		r.stats.secondaryHits.Add(1)
		return bundle, nil
	}

	r.stats.failures.Add(1)
	r.logger.Error("all sources failed", "relation_id", relationID, "error", secondaryErr)

	return nil, &fetcher.FetchError{
		Source:     domain.SourceBoth,
		RelationID: relationID,
		Reason:     fetcher.ReasonBothFailed,
		Err:        errors.Join(primaryErr, secondaryErr),
	}
}

func (r *Resolver) Stats() StatsSnapshot {
	return StatsSnapshot{
		Local:    r.stats.primaryHits.Load(),
		Remote:   r.stats.secondaryHits.Load(),
		Failures: r.stats.failures.Load(),
	}
}
