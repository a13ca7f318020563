// Package fetcher turns a route relation id into a renderable layer bundle.
// Local reads a pre-fetched GeoJSON dataset, Remote queries Overpass.
package fetcher

import (
	"context"
	"fmt"

	"routemap/internal/domain"
)

const (
	ReasonLocalUnavailable  = "local-unavailable"
	ReasonRemoteUnavailable = "remote-unavailable"
	ReasonBothFailed        = "both-sources-failed"
)

type Fetcher interface {
	Fetch(ctx context.Context, relationID string, displayType domain.DisplayType, color string) (*domain.LayerBundle, error)
	Source() domain.Source
}

// FetchError reports a failed resolution from one or both sources
type FetchError struct {
	Source     domain.Source
	RelationID string
	Reason     string
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: relation %s", e.Reason, e.RelationID)
	}
	return fmt.Sprintf("%s: relation %s: %v", e.Reason, e.RelationID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
