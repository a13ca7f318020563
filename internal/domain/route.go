package domain

import "fmt"

// DisplayType selects whether all stops or only route end stops are shown
type DisplayType string

const (
	DisplayWaysOnly       DisplayType = "ways_only"
	DisplayWaysWithPoints DisplayType = "ways_with_points"
)

func (t DisplayType) Valid() bool {
	return t == DisplayWaysOnly || t == DisplayWaysWithPoints
}

// StopsResource is the local resource name holding the stops for this display type
func (t DisplayType) StopsResource() string {
	if t == DisplayWaysWithPoints {
		return "stops.geojson"
	}
	return "endstops.geojson"
}

// Route describes one toggleable route from the manifest
type Route struct {
	RelationID  string      `json:"relationId" validate:"required,number,startsnotwith=0"`
	DisplayType DisplayType `json:"type" validate:"required,oneof=ways_only ways_with_points"`
	Color       string      `json:"color" validate:"required"`
	Name        string      `json:"name" validate:"required"`
}

func (r Route) String() string {
	return fmt.Sprintf("%s (%s)", r.Name, r.RelationID)
}

// Manifest is the list of routes offered to the page
type Manifest struct {
	Routes []Route `json:"routes" validate:"dive"`
}

// Find returns the route with the given relation id
func (m *Manifest) Find(relationID string) (Route, bool) {
	for _, r := range m.Routes {
		if r.RelationID == relationID {
			return r, true
		}
	}
	return Route{}, false
}
