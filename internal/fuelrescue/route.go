package fuelrescue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rubiojr/fuelrescue/pkg/api"
	"github.com/rubiojr/fuelrescue/pkg/geo"
)

const (
	DefaultRouteCacheSize = 256
	DefaultRouteCacheTTL  = 10 * time.Minute
	routeKeyPrecision     = 5
)

// Router computes a road route between two coordinates.
type Router interface {
	Route(ctx context.Context, from, to geo.Coordinate) (*api.Route, error)
}

type routeEntry struct {
	route     *api.Route
	expiresAt time.Time
}

// RoutePlanner fronts a Router with an expiring LRU cache.
type RoutePlanner struct {
	router Router
	cache  *lru.Cache[string, routeEntry]
	ttl    time.Duration
	log    *slog.Logger
}

// NewRoutePlanner wraps router. size and ttl fall back to the defaults when not positive.
func NewRoutePlanner(router Router, size int, ttl time.Duration, logger *slog.Logger) (*RoutePlanner, error) {
	if size <= 0 {
		size = DefaultRouteCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultRouteCacheTTL
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c, err := lru.New[string, routeEntry](size)
	if err != nil {
		return nil, fmt.Errorf("creating LRU cache: %w", err)
	}
	return &RoutePlanner{router: router, cache: c, ttl: ttl, log: logger}, nil
}

// Plan returns the route from -> to. Errors wrap ErrRoutingFailed.
func (p *RoutePlanner) Plan(ctx context.Context, from, to geo.Coordinate) (*api.Route, error) {
	key := routeKey(from, to)
	if entry, ok := p.cache.Get(key); ok {
		if time.Now().Before(entry.expiresAt) {
			return entry.route, nil
		}
		p.cache.Remove(key)
	}

	route, err := p.router.Route(ctx, from, to)
	if err != nil {
		p.log.Error("Routing failed", "from", from.String(), "to", to.String(), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrRoutingFailed, err)
	}

	p.log.Debug("Route found", "distance_m", route.DistanceMeters, "duration_s", route.DurationSeconds, "points", len(route.Geometry))
	p.cache.Add(key, routeEntry{route: route, expiresAt: time.Now().Add(p.ttl)})
	return route, nil
}

func routeKey(from, to geo.Coordinate) string {
	return fmt.Sprintf("%.*f,%.*f;%.*f,%.*f",
		routeKeyPrecision, from.Lat, routeKeyPrecision, from.Lon,
		routeKeyPrecision, to.Lat, routeKeyPrecision, to.Lon)
}
