package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rubiojr/fuelrescue/pkg/geo"
)

// DefaultOSRMURL is the public OSRM demo server.
const DefaultOSRMURL = "https://router.project-osrm.org/route/v1"

// Route is a road route between two coordinates.
type Route struct {
	DistanceMeters  float64          `json:"distance_m"`
	DurationSeconds float64          `json:"duration_s"`
	Geometry        []geo.Coordinate `json:"geometry,omitempty"`
}

// DistanceKm is the route length in kilometers rounded to one decimal.
func (r *Route) DistanceKm() float64 {
	return geo.Round(r.DistanceMeters/1000, 1)
}

// Minutes is the travel time rounded to whole minutes.
func (r *Route) Minutes() int {
	return int(geo.Round(r.DurationSeconds/60, 0))
}

// RoutingAPI computes driving routes with an OSRM server.
type RoutingAPI struct {
	baseURL    string
	httpClient *http.Client
}

// NewRoutingAPI creates a client for the OSRM route service at baseURL.
func NewRoutingAPI(baseURL string, timeout time.Duration) *RoutingAPI {
	if baseURL == "" {
		baseURL = DefaultOSRMURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RoutingAPI{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Route fetches the fastest driving route from -> to.
func (api *RoutingAPI) Route(ctx context.Context, from, to geo.Coordinate) (*Route, error) {
	// OSRM takes lon,lat pairs
	u := fmt.Sprintf("%s/driving/%f,%f;%f,%f?overview=full&geometries=geojson",
		api.baseURL, from.Lon, from.Lat, to.Lon, to.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	resp, err := api.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching route: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	var osrmResp OSRMResponse
	if err := json.Unmarshal(body, &osrmResp); err != nil {
		return nil, fmt.Errorf("error unmarshaling JSON (status %d): %w", resp.StatusCode, err)
	}

	if osrmResp.Code != OSRMResultOK {
		return nil, fmt.Errorf("routing service returned %q: %s", osrmResp.Code, osrmResp.Message)
	}
	if len(osrmResp.Routes) == 0 {
		return nil, fmt.Errorf("routing service returned no routes")
	}

	best := osrmResp.Routes[0]
	points := make([]geo.Coordinate, 0, len(best.Geometry.Coordinates))
	for _, c := range best.Geometry.Coordinates {
		if len(c) < 2 {
			continue
		}
		points = append(points, geo.Coordinate{Lat: c[1], Lon: c[0]})
	}

	return &Route{
		DistanceMeters:  best.Distance,
		DurationSeconds: best.Duration,
		Geometry:        points,
	}, nil
}
