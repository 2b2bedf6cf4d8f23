package fuelrescue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/rubiojr/fuelrescue/pkg/api"
	"github.com/rubiojr/fuelrescue/pkg/geo"
)

const (
	metersPerKm = 1000.0

	// AdvisoryLiveUnavailable is shown when no mirror answered and nothing local matched.
	AdvisoryLiveUnavailable = "live service unavailable, showing local points"

	searchLogPrecision = 2
)

// Mirror is one Overpass endpoint able to answer the fuel amenity query.
type Mirror interface {
	Name() string
	FetchFuelStations(ctx context.Context, center geo.Coordinate, radiusMeters float64) (*api.OverpassResponse, error)
}

// SearchLogger records searched locations. Failures are logged, never returned to callers.
type SearchLogger interface {
	LogSearchLocation(ctx context.Context, latitude, longitude, distance float64) error
}

// DiscoveryResult is the outcome of one discovery run.
type DiscoveryResult struct {
	Center   geo.Coordinate `json:"center"`
	Filter   FilterMode     `json:"filter"`
	Stations []Station      `json:"stations"`
	// Mirror is the name of the mirror whose answer was used, empty if none.
	Mirror string `json:"mirror,omitempty"`
	// Degraded is set when every mirror failed.
	Degraded bool `json:"degraded"`
	// Advisory is set when every mirror failed and no station matched.
	Advisory        bool   `json:"advisory"`
	AdvisoryMessage string `json:"advisory_message,omitempty"`
}

// Discoverer finds stations around a coordinate.
type Discoverer struct {
	mirrors  []Mirror
	local    []Station
	radiusKm float64
	searches SearchLogger
	log      *slog.Logger
}

// DiscovererOption configures a Discoverer.
type DiscovererOption func(*Discoverer)

// WithRadiusKm overrides DefaultRadiusKm.
func WithRadiusKm(km float64) DiscovererOption {
	return func(d *Discoverer) {
		if km > 0 {
			d.radiusKm = km
		}
	}
}

// WithLocalStations replaces the built-in station list.
func WithLocalStations(stations []Station) DiscovererOption {
	return func(d *Discoverer) {
		d.local = stations
	}
}

// WithSearchLogger records every searched location.
func WithSearchLogger(l SearchLogger) DiscovererOption {
	return func(d *Discoverer) {
		d.searches = l
	}
}

// NewDiscoverer creates a Discoverer trying mirrors in the given order.
func NewDiscoverer(mirrors []Mirror, logger *slog.Logger, opts ...DiscovererOption) *Discoverer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	d := &Discoverer{
		mirrors:  mirrors,
		local:    LocalStations,
		radiusKm: DefaultRadiusKm,
		log:      logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// RadiusKm returns the configured search radius.
func (d *Discoverer) RadiusKm() float64 {
	return d.radiusKm
}

// Discover returns stations around center accepted by mode, nearest first.
// The filter mode and the radius apply to live stations as well as to the
// built-in list, so a live station without diesel or beyond the radius is
// never returned.
// Mirror failures never make it fail: they are reported through Degraded and
// Advisory on the result.
func (d *Discoverer) Discover(ctx context.Context, center geo.Coordinate, mode FilterMode) (*DiscoveryResult, error) {
	if !center.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCoordinate, center)
	}
	if mode == "" {
		mode = FilterAll
	}

	d.logSearch(ctx, center)

	result := &DiscoveryResult{Center: center, Filter: mode}

	local := d.nearby(center, mode, d.local)

	fetched, mirror, err := d.fetch(ctx, center)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		d.log.Warn("Falling back to local stations", "error", err)
		result.Degraded = true
	}
	result.Mirror = mirror

	result.Stations = mergeStations(local, d.nearby(center, mode, fetched))

	if result.Degraded && len(result.Stations) == 0 {
		result.Advisory = true
		result.AdvisoryMessage = AdvisoryLiveUnavailable
	}

	d.log.Debug("Discovery completed",
		"center", center.String(),
		"filter", mode,
		"stations", len(result.Stations),
		"mirror", mirror,
		"degraded", result.Degraded)

	return result, nil
}

// fetch asks each mirror in order and returns the first parseable answer.
func (d *Discoverer) fetch(ctx context.Context, center geo.Coordinate) ([]Station, string, error) {
	var errs []error
	for _, m := range d.mirrors {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		resp, err := m.FetchFuelStations(ctx, center, d.radiusKm*metersPerKm)
		if err != nil {
			d.log.Warn("Mirror busy", "mirror", m.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", m.Name(), err))
			continue
		}
		return stationsFromElements(resp.Elements, m.Name()), m.Name(), nil
	}
	if len(errs) == 0 {
		return nil, "", fmt.Errorf("%w: no mirrors configured", ErrAllMirrorsFailed)
	}
	return nil, "", fmt.Errorf("%w: %w", ErrAllMirrorsFailed, errors.Join(errs...))
}

// nearby computes distances and keeps the stations inside the radius
// accepted by mode. The input slice is not modified.
func (d *Discoverer) nearby(center geo.Coordinate, mode FilterMode, stations []Station) []Station {
	out := make([]Station, 0, len(stations))
	for i := range stations {
		s := stations[i]
		s.DistanceKm = geo.DistanceKm(center, s.Location)
		if s.DistanceKm > d.radiusKm || !mode.Accepts(&s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (d *Discoverer) logSearch(ctx context.Context, center geo.Coordinate) {
	if d.searches == nil {
		return
	}
	lat, lng := geo.Round(center.Lat, searchLogPrecision), geo.Round(center.Lon, searchLogPrecision)
	if err := d.searches.LogSearchLocation(ctx, lat, lng, d.radiusKm*metersPerKm); err != nil {
		d.log.Error("Failed to log search location", "error", err)
		return
	}
	d.log.Debug("Search location logged", "latitude", lat, "longitude", lng)
}

func stationsFromElements(elements []api.OverpassElement, source string) []Station {
	stations := make([]Station, 0, len(elements))
	for i := range elements {
		e := &elements[i]
		name := e.Tag("name")
		if name == "" {
			name = unnamedStation
		}
		brand := e.Tag("brand")
		if brand == "" {
			brand = e.Tag("operator")
		}
		stations = append(stations, Station{
			ID:        strconv.FormatInt(e.ID, 10),
			Name:      name,
			Brand:     brand,
			Location:  geo.Coordinate{Lat: e.Lat, Lon: e.Lon},
			Open247:   strings.Contains(e.Tag("opening_hours"), "24/7"),
			HasDiesel: e.Tag("fuel:diesel") != "no",
			Source:    source,
		})
	}
	return stations
}

// mergeStations concatenates the lists, drops later duplicates by name and
// latitude, and sorts by distance keeping the merge order for ties.
func mergeStations(lists ...[]Station) []Station {
	seen := make(map[string]struct{})
	merged := []Station{}
	for _, list := range lists {
		for i := range list {
			key := list[i].dedupKey()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, list[i])
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].DistanceKm < merged[j].DistanceKm
	})
	return merged
}
