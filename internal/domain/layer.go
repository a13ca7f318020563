package domain

import (
	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

const (
	DefaultStopLabel = "Unnamed Stop"

	lineWeight        = 4
	markerRadius      = 5
	markerFillColor   = "#ffffff"
	markerFillOpacity = 1.0
)

// Source identifies where a layer bundle's geometry came from
type Source string

const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
	SourceBoth   Source = "both"
)

// LatLng is a coordinate pair in [lat, lon] order, as map renderers expect it
type LatLng [2]float64

// LatLngFromPoint swaps an orb point (lon, lat) into lat-lon order
func LatLngFromPoint(p orb.Point) LatLng {
	return LatLng{p.Lat(), p.Lon()}
}

func (ll LatLng) Point() orb.Point {
	return orb.Point{ll[1], ll[0]}
}

// Polyline is one rendered line segment of a route
type Polyline struct {
	Points []LatLng `json:"points"`
	Color  string   `json:"color"`
	Weight int      `json:"weight"`
}

// Marker is one rendered stop of a route
type Marker struct {
	Position    LatLng  `json:"position"`
	Label       string  `json:"label"`
	Radius      int     `json:"radius"`
	Color       string  `json:"color"`
	FillColor   string  `json:"fillColor"`
	FillOpacity float64 `json:"fillOpacity"`
}

// LayerBundle holds every line and marker for one route. It is built once
// and never mutated afterwards.
type LayerBundle struct {
	ID         string     `json:"id"`
	RelationID string     `json:"relationId"`
	Source     Source     `json:"source"`
	Lines      []Polyline `json:"lines"`
	Markers    []Marker   `json:"markers"`
}

// BundleBuilder accumulates geometry for a single bundle.
type BundleBuilder struct {
	relationID string
	source     Source
	color      string
	lines      []Polyline
	markers    []Marker
}

func NewBundleBuilder(relationID string, source Source, color string) *BundleBuilder {
	return &BundleBuilder{
		relationID: relationID,
		source:     source,
		color:      color,
	}
}

func (b *BundleBuilder) AddLine(points []LatLng) {
	b.lines = append(b.lines, Polyline{
		Points: points,
		Color:  b.color,
		Weight: lineWeight,
	})
}

// AddMarker adds a stop marker; an empty label falls back to DefaultStopLabel
func (b *BundleBuilder) AddMarker(pos LatLng, label string) {
	if label == "" {
		label = DefaultStopLabel
	}
	b.markers = append(b.markers, Marker{
		Position:    pos,
		Label:       label,
		Radius:      markerRadius,
		Color:       b.color,
		FillColor:   markerFillColor,
		FillOpacity: markerFillOpacity,
	})
}

func (b *BundleBuilder) Build() *LayerBundle {
	return &LayerBundle{
		ID:         uuid.New().String(),
		RelationID: b.relationID,
		Source:     b.source,
		Lines:      b.lines,
		Markers:    b.markers,
	}
}

// Bound returns the bounding box of all lines and markers. ok is false for
// an empty bundle.
func (lb *LayerBundle) Bound() (bound orb.Bound, ok bool) {
	for _, l := range lb.Lines {
		for _, p := range l.Points {
			bound, ok = extend(bound, ok, p.Point())
		}
	}
	for _, m := range lb.Markers {
		bound, ok = extend(bound, ok, m.Position.Point())
	}
	return bound, ok
}

func extend(b orb.Bound, ok bool, p orb.Point) (orb.Bound, bool) {
	if !ok {
		return p.Bound(), true
	}
	return b.Extend(p), true
}

// WithNewID returns a copy of the bundle carrying a fresh layer id. Geometry
// slices are shared since bundles are never mutated.
func (lb *LayerBundle) WithNewID() *LayerBundle {
	c := *lb
	c.ID = uuid.New().String()
	return &c
}
