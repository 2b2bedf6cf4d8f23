// Package fuelrescue implements nearby fuel station discovery, route
// planning and the simulated emergency fuel delivery.
package fuelrescue

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rubiojr/fuelrescue/pkg/geo"
)

// DefaultRadiusKm is the search radius used for both the built-in list and the mirrors.
const DefaultRadiusKm = 10.0

// SourceLocal marks stations that come from the built-in list.
const SourceLocal = "local"

const unnamedStation = "Station"

// Station is a fuel station candidate for a rescue.
type Station struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Brand      string         `json:"brand,omitempty"`
	Location   geo.Coordinate `json:"location"`
	Open247    bool           `json:"open_24_7"`
	HasDiesel  bool           `json:"has_diesel"`
	DistanceKm float64        `json:"distance_km"`
	Source     string         `json:"source"`
}

// dedupKey identifies a station within a merged result. Only the name and the
// latitude take part, so two stations sharing both are treated as one.
func (s *Station) dedupKey() string {
	return s.Name + strconv.FormatFloat(s.Location.Lat, 'f', -1, 64)
}

// LocalStations is the built-in list of known stations, always merged ahead
// of live results.
var LocalStations = []Station{
	{
		ID:        "m1",
		Name:      "Sri Krishna Fuel Station",
		Brand:     "Bharat Petroleum",
		Location:  geo.Coordinate{Lat: 17.535, Lon: 78.445},
		Open247:   true,
		HasDiesel: true,
		Source:    SourceLocal,
	},
	{
		ID:        "m2",
		Name:      "Expressway Highway Bunk",
		Brand:     "Shell",
		Location:  geo.Coordinate{Lat: 17.52, Lon: 78.43},
		Open247:   false,
		HasDiesel: true,
		Source:    SourceLocal,
	},
}

// FilterMode restricts which stations a discovery returns.
type FilterMode string

const (
	FilterAll    FilterMode = "all"
	FilterDiesel FilterMode = "diesel"
	Filter247    FilterMode = "24/7"
)

// ParseFilterMode accepts the canonical names plus the long aliases.
func ParseFilterMode(s string) (FilterMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return FilterAll, nil
	case "diesel", "diesel-only":
		return FilterDiesel, nil
	case "24/7", "24-7", "24-7-only", "247":
		return Filter247, nil
	default:
		return "", fmt.Errorf("unknown filter mode %q", s)
	}
}

// Accepts reports whether s passes the filter.
func (m FilterMode) Accepts(s *Station) bool {
	switch m {
	case FilterDiesel:
		return s.HasDiesel
	case Filter247:
		return s.Open247
	default:
		return true
	}
}
