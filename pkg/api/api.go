// Package api provides clients for the public services fuelrescue talks to:
// Overpass interpreters for fuel station lookups and OSRM for road routes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rubiojr/fuelrescue/pkg/geo"
)

const (
	OSRMResultOK   = "Ok"
	DefaultTimeout = 15 * time.Second

	// FuelQueryTimeoutSeconds is the server side timeout embedded in the Overpass query.
	FuelQueryTimeoutSeconds = 10
)

// DefaultOverpassMirrors are the public Overpass interpreters tried in order.
var DefaultOverpassMirrors = []string{
	"https://overpass-api.de/api/interpreter",
	"https://lz4.overpass-api.de/api/interpreter",
}

// ErrNoElements is returned when an Overpass document has no elements array.
var ErrNoElements = errors.New("response has no elements")

// OverpassAPI queries a single Overpass interpreter endpoint.
type OverpassAPI struct {
	baseURL    string
	httpClient *http.Client
}

// NewOverpassAPI creates a client for the interpreter at baseURL.
func NewOverpassAPI(baseURL string, timeout time.Duration) *OverpassAPI {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OverpassAPI{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name identifies the mirror in logs and results.
func (api *OverpassAPI) Name() string {
	u, err := url.Parse(api.baseURL)
	if err != nil || u.Host == "" {
		return api.baseURL
	}
	return u.Host
}

// FuelQuery builds the Overpass QL query for every fuel amenity node within
// radiusMeters of center.
func FuelQuery(center geo.Coordinate, radiusMeters float64) string {
	return fmt.Sprintf(`[out:json][timeout:%d];node["amenity"="fuel"](around:%.0f,%g,%g);out;`,
		FuelQueryTimeoutSeconds, radiusMeters, center.Lat, center.Lon)
}

// FetchFuelStations runs FuelQuery against the interpreter and returns the decoded document.
func (api *OverpassAPI) FetchFuelStations(ctx context.Context, center geo.Coordinate, radiusMeters float64) (*OverpassResponse, error) {
	u := fmt.Sprintf("%s?data=%s", api.baseURL, url.QueryEscape(FuelQuery(center, radiusMeters)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	resp, err := api.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	var raw struct {
		OverpassResponse
		Elements *[]OverpassElement `json:"elements"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("error unmarshaling JSON: %w", err)
	}
	if raw.Elements == nil {
		return nil, ErrNoElements
	}

	out := raw.OverpassResponse
	out.Elements = *raw.Elements
	return &out, nil
}
