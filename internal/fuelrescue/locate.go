package fuelrescue

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/muesli/gominatim"
	"github.com/patrickmn/go-cache"

	"github.com/rubiojr/fuelrescue/pkg/geo"
)

// DefaultNominatimServer is the public OpenStreetMap geocoder.
const DefaultNominatimServer = "https://nominatim.openstreetmap.org/"

const (
	geocodeCacheExpiry  = 30 * time.Minute
	geocodeCacheCleanup = 90 * time.Minute
)

// Locator reports the user's position. Failures wrap ErrLocationDenied.
type Locator interface {
	Locate(ctx context.Context) (geo.Coordinate, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context) (geo.Coordinate, error)

func (f LocatorFunc) Locate(ctx context.Context) (geo.Coordinate, error) {
	return f(ctx)
}

// StaticLocator returns a fixed, user supplied coordinate.
type StaticLocator struct {
	Coordinate geo.Coordinate
}

func (l StaticLocator) Locate(_ context.Context) (geo.Coordinate, error) {
	if l.Coordinate.IsZero() {
		return geo.Coordinate{}, fmt.Errorf("%w: latitude and longitude are required", ErrLocationDenied)
	}
	if !l.Coordinate.Valid() {
		return geo.Coordinate{}, fmt.Errorf("%w: %w: %s", ErrLocationDenied, ErrInvalidCoordinate, l.Coordinate)
	}
	return l.Coordinate, nil
}

// Place is a geocoded location.
type Place struct {
	DisplayName string
	Coordinate  geo.Coordinate
}

// Geocoder resolves free text place names with Nominatim, caching answers.
type Geocoder struct {
	cache  *cache.Cache
	search func(query string) ([]gominatim.SearchResult, error)
}

// NewGeocoder configures gominatim to use server and returns a caching geocoder.
// gominatim keeps its server in a package variable, so every Geocoder in the
// process talks to the server given to the most recent call. gominatim
// requests take no context: a cancelled lookup still runs to completion, but
// its answer is dropped instead of cached.
func NewGeocoder(server string) *Geocoder {
	if server == "" {
		server = DefaultNominatimServer
	}
	gominatim.SetServer(server)
	return &Geocoder{
		cache: cache.New(geocodeCacheExpiry, geocodeCacheCleanup),
		search: func(query string) ([]gominatim.SearchResult, error) {
			qry := gominatim.SearchQuery{Q: query}
			return qry.Get()
		},
	}
}

// Geocode returns the best match for query.
func (g *Geocoder) Geocode(ctx context.Context, query string) (*Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty location", ErrLocationDenied)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := strings.ToLower(query)
	if cached, ok := g.cache.Get(key); ok {
		return cached.(*Place), nil
	}

	results, err := g.search(query)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return nil, fmt.Errorf("%w: geocoding error: %w", ErrLocationDenied, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: no results found for location: %s", ErrLocationDenied, query)
	}

	place, err := placeFromResult(results[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLocationDenied, err)
	}
	g.cache.Set(key, place, cache.DefaultExpiration)
	return place, nil
}

// Locator returns a Locator resolving query through g.
func (g *Geocoder) Locator(query string) Locator {
	return LocatorFunc(func(ctx context.Context) (geo.Coordinate, error) {
		place, err := g.Geocode(ctx, query)
		if err != nil {
			return geo.Coordinate{}, err
		}
		return place.Coordinate, nil
	})
}

func placeFromResult(result gominatim.SearchResult) (*Place, error) {
	lat, err := strconv.ParseFloat(result.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("error parsing latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(result.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("error parsing longitude: %w", err)
	}
	return &Place{
		DisplayName: result.DisplayName,
		Coordinate:  geo.Coordinate{Lat: lat, Lon: lng},
	}, nil
}
