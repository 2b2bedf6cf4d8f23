package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rubiojr/fuelrescue/internal/fuelrescue"
	"github.com/rubiojr/fuelrescue/pkg/api"
	"github.com/rubiojr/fuelrescue/pkg/geo"
)

type stationsResponse struct {
	*fuelrescue.DiscoveryResult
	Location string `json:"location,omitempty"`
	Message  string `json:"message,omitempty"`
}

type routeResponse struct {
	DistanceKm      float64          `json:"distance_km"`
	DurationMinutes int              `json:"duration_min"`
	DistanceMeters  float64          `json:"distance_m"`
	DurationSeconds float64          `json:"duration_s"`
	Geometry        []geo.Coordinate `json:"geometry"`
}

func newRouteResponse(route *api.Route) routeResponse {
	return routeResponse{
		DistanceKm:      route.DistanceKm(),
		DurationMinutes: route.Minutes(),
		DistanceMeters:  route.DistanceMeters,
		DurationSeconds: route.DurationSeconds,
		Geometry:        route.Geometry,
	}
}

// handleStations serves GET /api/stations?lat=&lng=|location=&filter=&lang=
func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tr := translations(r)

	mode, err := fuelrescue.ParseFilterMode(q.Get("filter"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}

	var locator fuelrescue.Locator
	location := strings.TrimSpace(q.Get("location"))
	switch {
	case location != "" && s.geocoder != nil:
		locator = s.geocoder.Locator(location)
	default:
		c, err := parseCoordinate(q, "lat", "lng")
		if err != nil {
			s.writeError(w, http.StatusBadRequest, tr.LocationDenied, err)
			return
		}
		locator = fuelrescue.StaticLocator{Coordinate: c}
	}

	center, err := locator.Locate(r.Context())
	if err != nil {
		status := http.StatusBadRequest
		if location != "" {
			status = http.StatusNotFound
		}
		s.writeError(w, status, tr.LocationDenied, err)
		return
	}

	result, err := s.discoverer.Discover(r.Context(), center, mode)
	if err != nil {
		if errors.Is(err, fuelrescue.ErrInvalidCoordinate) {
			s.writeError(w, http.StatusBadRequest, tr.LocationDenied, err)
			return
		}
		s.log.Error("Error discovering stations", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Error finding nearby stations", err)
		return
	}

	resp := stationsResponse{DiscoveryResult: result, Location: location}
	switch {
	case result.Degraded:
		resp.Message = tr.LiveServersBusy
	case len(result.Stations) == 0:
		resp.Message = tr.NoStationsFound
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleRoute serves GET /api/route?from_lat=&from_lng=&to_lat=&to_lng=
func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tr := translations(r)

	from, err := parseCoordinate(q, "from_lat", "from_lng")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid origin", err)
		return
	}
	to, err := parseCoordinate(q, "to_lat", "to_lng")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid destination", err)
		return
	}

	if s.planner == nil {
		s.writeError(w, http.StatusBadGateway, tr.RoutingFailed, fuelrescue.ErrRoutingFailed)
		return
	}

	route, err := s.planner.Plan(r.Context(), from, to)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, tr.RoutingFailed, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newRouteResponse(route))
}
