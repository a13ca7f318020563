package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"routemap/internal/domain"
	"routemap/internal/transport"
)

const waysResource = "ways.geojson"

// Local reads <base>/<relationId>/ways.geojson and the stops resource picked
// by the display type.
type Local struct {
	baseURL    string
	httpClient *http.Client
}

func NewLocal(baseURL string, httpClient *http.Client) *Local {
	return &Local{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

func (l *Local) Source() domain.Source {
	return domain.SourceLocal
}

type docResult struct {
	fc  *geojson.FeatureCollection
	err error
}

func (l *Local) Fetch(ctx context.Context, relationID string, displayType domain.DisplayType, color string) (*domain.LayerBundle, error) {
	waysCh := make(chan docResult, 1)
	stopsCh := make(chan docResult, 1)

	go func() {
		fc, err := l.get(ctx, transport.Join(l.baseURL, relationID, waysResource))
		waysCh <- docResult{fc, err}
	}()
	go func() {
		fc, err := l.get(ctx, transport.Join(l.baseURL, relationID, displayType.StopsResource()))
		stopsCh <- docResult{fc, err}
	}()

	ways, stops := <-waysCh, <-stopsCh
	if ways.err != nil {
		return nil, l.fail(relationID, fmt.Errorf("ways: %w", ways.err))
	}
	if stops.err != nil {
		return nil, l.fail(relationID, fmt.Errorf("stops: %w", stops.err))
	}

	return buildFromFeatures(relationID, color, ways.fc, stops.fc), nil
}

func (l *Local) fail(relationID string, err error) error {
	return &FetchError{
		Source:     domain.SourceLocal,
		RelationID: relationID,
		Reason:     ReasonLocalUnavailable,
		Err:        err,
	}
}

func (l *Local) get(ctx context.Context, url string) (*geojson.FeatureCollection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decoding geojson: %w", err)
	}
	return fc, nil
}

// buildFromFeatures keeps LineString features from ways and Point features
// from stops; anything else is ignored.
func buildFromFeatures(relationID, color string, ways, stops *geojson.FeatureCollection) *domain.LayerBundle {
	b := domain.NewBundleBuilder(relationID, domain.SourceLocal, color)

	for _, f := range ways.Features {
		ls, ok := f.Geometry.(orb.LineString)
		if !ok {
			continue
		}
		points := make([]domain.LatLng, len(ls))
		for i, p := range ls {
			points[i] = domain.LatLngFromPoint(p)
		}
		b.AddLine(points)
	}

	for _, f := range stops.Features {
		p, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}
		b.AddMarker(domain.LatLngFromPoint(p), f.Properties.MustString("name", ""))
	}

	return b.Build()
}
