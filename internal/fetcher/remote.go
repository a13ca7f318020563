package fetcher

import (
	"context"
	"fmt"
	"strconv"

	"github.com/paulmach/osm"

	"routemap/internal/domain"
	"routemap/pkg/overpass"
)

// Remote resolves routes through a single Overpass query.
type Remote struct {
	client *overpass.Client
}

func NewRemote(client *overpass.Client) *Remote {
	return &Remote{client: client}
}

func (r *Remote) Source() domain.Source {
	return domain.SourceRemote
}

func (r *Remote) Fetch(ctx context.Context, relationID string, displayType domain.DisplayType, color string) (*domain.LayerBundle, error) {
	id, err := strconv.ParseInt(relationID, 10, 64)
	if err != nil {
		return nil, r.fail(relationID, fmt.Errorf("invalid relation id: %w", err))
	}

	query := overpass.RouteQuery(osm.RelationID(id), stopRoles(displayType))

	resp, err := r.client.Interpret(ctx, query)
	if err != nil {
		return nil, r.fail(relationID, err)
	}

	return buildFromElements(relationID, color, resp.Elements), nil
}

func (r *Remote) fail(relationID string, err error) error {
	return &FetchError{
		Source:     domain.SourceRemote,
		RelationID: relationID,
		Reason:     ReasonRemoteUnavailable,
		Err:        err,
	}
}

func stopRoles(displayType domain.DisplayType) []string {
	if displayType == domain.DisplayWaysWithPoints {
		return []string{overpass.RoleStop, overpass.RoleStopEntryOnly, overpass.RoleStopExitOnly}
	}
	return []string{overpass.RoleStopEntryOnly, overpass.RoleStopExitOnly}
}

func buildFromElements(relationID, color string, elements []overpass.Element) *domain.LayerBundle {
	b := domain.NewBundleBuilder(relationID, domain.SourceRemote, color)

	for _, el := range elements {
		switch el.Type {
		case osm.TypeWay:
			if len(el.Geometry) == 0 {
				continue
			}
			points := make([]domain.LatLng, len(el.Geometry))
			for i, g := range el.Geometry {
				points[i] = domain.LatLng{g.Lat, g.Lon}
			}
			b.AddLine(points)
		case osm.TypeNode:
			b.AddMarker(domain.LatLng{el.Lat, el.Lon}, el.Tags.Find("name"))
		}
	}

	return b.Build()
}
