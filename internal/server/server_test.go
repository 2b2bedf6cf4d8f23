package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkrajina/gpxgo/gpx"
	"golang.org/x/crypto/bcrypt"

	"github.com/rubiojr/fuelrescue/internal/account"
	"github.com/rubiojr/fuelrescue/internal/fuelrescue"
	"github.com/rubiojr/fuelrescue/internal/rescuedb"
	"github.com/rubiojr/fuelrescue/pkg/api"
	"github.com/rubiojr/fuelrescue/pkg/geo"
)

const overpassBody = `{
	"version": 0.6,
	"elements": [
		{"type": "node", "id": 101, "lat": 17.39, "lon": 78.49,
		 "tags": {"amenity": "fuel", "name": "Lakdikapul Fuels", "brand": "Indian Oil", "opening_hours": "24/7"}},
		{"type": "node", "id": 102, "lat": 17.40, "lon": 78.50,
		 "tags": {"amenity": "fuel", "fuel:diesel": "no"}}
	]
}`

const osrmBody = `{
	"code": "Ok",
	"routes": [{
		"distance": 1520.4,
		"duration": 240,
		"geometry": {"type": "LineString", "coordinates": [[78.486, 17.385], [78.49, 17.39]]}
	}]
}`

type testEnv struct {
	server       *Server
	http         *httptest.Server
	storage      *rescuedb.Storage
	overpassDown atomic.Bool
	osrmDown     atomic.Bool
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	env := &testEnv{}

	overpass := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if env.overpassDown.Load() {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, overpassBody)
	}))
	t.Cleanup(overpass.Close)

	osrm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if env.osrmDown.Load() {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, osrmBody)
	}))
	t.Cleanup(osrm.Close)

	storage, err := rescuedb.NewStorage(context.Background(), filepath.Join(t.TempDir(), "server.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })
	env.storage = storage

	logger := httplog.NewLogger("fuelrescue-test", httplog.Options{
		LogLevel: slog.LevelError,
		Concise:  true,
	})

	discoverer := fuelrescue.NewDiscoverer(
		[]fuelrescue.Mirror{api.NewOverpassAPI(overpass.URL, time.Second)},
		logger.Logger,
		fuelrescue.WithSearchLogger(storage),
	)
	planner, err := fuelrescue.NewRoutePlanner(api.NewRoutingAPI(osrm.URL, time.Second), 0, 0, logger.Logger)
	require.NoError(t, err)

	opts = append([]Option{
		WithRateLimit(1000),
		WithDeliveryOptions(fuelrescue.WithTickInterval(time.Millisecond)),
	}, opts...)
	env.server = New(Deps{
		Discoverer: discoverer,
		Planner:    planner,
		Geocoder:   fakeGeocoder{},
		Storage:    storage,
		Accounts:   account.NewService(storage, logger.Logger, account.WithCost(bcrypt.MinCost)),
		Logger:     logger,
	}, opts...)
	t.Cleanup(env.server.Close)

	env.http = httptest.NewServer(env.server.Handler())
	t.Cleanup(env.http.Close)
	return env
}

type fakeGeocoder struct{}

func (fakeGeocoder) Locator(query string) fuelrescue.Locator {
	return fuelrescue.LocatorFunc(func(context.Context) (geo.Coordinate, error) {
		if strings.EqualFold(query, "hyderabad") {
			return geo.Coordinate{Lat: 17.385, Lon: 78.486}, nil
		}
		return geo.Coordinate{}, fmt.Errorf("%w: no results found for location: %s", fuelrescue.ErrLocationDenied, query)
	})
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.http.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

type stationsPayload struct {
	Stations []fuelrescue.Station `json:"stations"`
	Mirror   string               `json:"mirror"`
	Degraded bool                 `json:"degraded"`
	Advisory bool                 `json:"advisory"`
	Message  string               `json:"message"`
}

func TestStationsByCoordinate(t *testing.T) {
	env := newTestEnv(t)

	resp, data := env.do(t, http.MethodGet, "/api/stations?lat=17.385&lng=78.486", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	got := decode[stationsPayload](t, data)
	require.Len(t, got.Stations, 2)
	assert.Equal(t, "Lakdikapul Fuels", got.Stations[0].Name)
	assert.Equal(t, "Station", got.Stations[1].Name)
	assert.LessOrEqual(t, got.Stations[0].DistanceKm, got.Stations[1].DistanceKm)
	assert.False(t, got.Degraded)
	assert.Empty(t, got.Message)
}

func TestStationsFilterAndLocation(t *testing.T) {
	env := newTestEnv(t)

	resp, data := env.do(t, http.MethodGet, "/api/stations?location=Hyderabad&filter=diesel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	got := decode[stationsPayload](t, data)
	require.Len(t, got.Stations, 1)
	assert.Equal(t, "Lakdikapul Fuels", got.Stations[0].Name)

	resp, data = env.do(t, http.MethodGet, "/api/stations?location=Atlantis", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Location Denied", decode[errorResponse](t, data).Error)

	resp, _ = env.do(t, http.MethodGet, "/api/stations?lat=17.385&lng=78.486&filter=lpg", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStationsLocationDenied(t *testing.T) {
	env := newTestEnv(t)

	tests := []string{
		"/api/stations",
		"/api/stations?lat=abc&lng=78.486",
		"/api/stations?lat=95&lng=78.486",
		"/api/stations?lat=0&lng=0",
	}
	for _, path := range tests {
		resp, data := env.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
		assert.Equal(t, "Location Denied", decode[errorResponse](t, data).Error, path)
	}

	resp, data := env.do(t, http.MethodGet, "/api/stations?lang=es", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Ubicación denegada", decode[errorResponse](t, data).Error)
}

func TestStationsMirrorsDown(t *testing.T) {
	env := newTestEnv(t)
	env.overpassDown.Store(true)

	resp, data := env.do(t, http.MethodGet, "/api/stations?lat=17.385&lng=78.486", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode[stationsPayload](t, data)
	assert.Empty(t, got.Stations)
	assert.True(t, got.Degraded)
	assert.True(t, got.Advisory)
	assert.Equal(t, "Live servers busy. Showing local rescue points.", got.Message)

	// Both built-in stations are under 5 km from here.
	resp, data = env.do(t, http.MethodGet, "/api/stations?lat=17.50&lng=78.47", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got = decode[stationsPayload](t, data)
	require.NotEmpty(t, got.Stations)
	assert.Equal(t, fuelrescue.SourceLocal, got.Stations[0].Source)
	assert.True(t, got.Degraded)
	assert.False(t, got.Advisory)
}

func TestRoute(t *testing.T) {
	env := newTestEnv(t)

	resp, data := env.do(t, http.MethodGet, "/api/route?from_lat=17.39&from_lng=78.49&to_lat=17.385&to_lng=78.486", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	got := decode[routeResponse](t, data)
	assert.Equal(t, 1.5, got.DistanceKm)
	assert.Equal(t, 4, got.DurationMinutes)
	require.Len(t, got.Geometry, 2)
	assert.Equal(t, geo.Coordinate{Lat: 17.385, Lon: 78.486}, got.Geometry[0])

	resp, _ = env.do(t, http.MethodGet, "/api/route?from_lat=17.39", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouteFailure(t *testing.T) {
	env := newTestEnv(t)
	env.osrmDown.Store(true)

	resp, data := env.do(t, http.MethodGet, "/api/route?from_lat=17.39&from_lng=78.49&to_lat=17.385&to_lng=78.486", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "Route unavailable. You can still request fuel.", decode[errorResponse](t, data).Error)
}

func TestCreateRequestCompletesDelivery(t *testing.T) {
	env := newTestEnv(t)

	resp, data := env.do(t, http.MethodPost, "/api/requests", map[string]any{
		"station_id":      "m2",
		"user_location":   map[string]float64{"lat": 17.50, "lng": 78.47},
		"fuel_type":       "Diesel",
		"quantity_liters": 10,
		"notes":           "red truck",
		"user_email":      "driver@example.com",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))

	created := decode[requestResponse](t, data)
	require.NotNil(t, created.Request)
	assert.Equal(t, "Expressway Highway Bunk", created.Request.StationName)
	assert.Equal(t, fuelrescue.RequestInTransit, created.Request.Status)
	assert.Equal(t, "Request Sent!", created.Message)
	require.NotNil(t, created.Delivery)

	id := created.Request.ID
	var got requestResponse
	require.Eventually(t, func() bool {
		resp, data := env.do(t, http.MethodGet, "/api/requests/"+id, nil)
		if resp.StatusCode != http.StatusOK {
			return false
		}
		got = decode[requestResponse](t, data)
		return got.Request.Status == fuelrescue.RequestCompleted
	}, 5*time.Second, 20*time.Millisecond)

	require.NotNil(t, got.Delivery)
	assert.Equal(t, 100.0, got.Delivery.Progress)
	assert.Equal(t, fuelrescue.DeliveryCompleted, got.Delivery.Status)
	assert.Equal(t, geo.Coordinate{Lat: 17.50, Lon: 78.47}, got.Delivery.Position)
	assert.Equal(t, "Rescue Completed!", got.Message)

	resp, data = env.do(t, http.MethodGet, "/api/requests/"+id+"/track.gpx", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/gpx+xml", resp.Header.Get("Content-Type"))
	track, err := gpx.ParseBytes(data)
	require.NoError(t, err)
	require.Len(t, track.Waypoints, 1)
	require.Len(t, track.Tracks, 1)
	assert.Len(t, track.Tracks[0].Segments[0].Points, 201)

	resp, _ = env.do(t, http.MethodDelete, "/api/requests/"+id, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCancelRequest(t *testing.T) {
	env := newTestEnv(t, WithDeliveryOptions(fuelrescue.WithTickInterval(time.Hour)))

	resp, data := env.do(t, http.MethodPost, "/api/requests", map[string]any{
		"station": fuelrescue.Station{
			ID:        "101",
			Name:      "Lakdikapul Fuels",
			Location:  geo.Coordinate{Lat: 17.39, Lon: 78.49},
			HasDiesel: true,
		},
		"user_location":   map[string]float64{"lat": 17.385, "lng": 78.486},
		"fuel_type":       "petrol",
		"quantity_liters": 5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	id := decode[requestResponse](t, data).Request.ID

	resp, data = env.do(t, http.MethodDelete, "/api/requests/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	cancelled := decode[requestResponse](t, data)
	assert.Equal(t, fuelrescue.RequestCancelled, cancelled.Request.Status)
	require.NotNil(t, cancelled.Delivery)
	assert.Equal(t, fuelrescue.DeliveryIdle, cancelled.Delivery.Status)
	assert.Equal(t, "Rescue cancelled.", cancelled.Message)

	resp, _ = env.do(t, http.MethodDelete, "/api/requests/"+id, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCancelAfterDeliveryCompletedBeforeStatusUpdate(t *testing.T) {
	env := newTestEnv(t, WithDeliveryOptions(fuelrescue.WithTickInterval(time.Hour)))

	resp, data := env.do(t, http.MethodPost, "/api/requests", map[string]any{
		"station_id":      "m1",
		"user_location":   map[string]float64{"lat": 17.385, "lng": 78.486},
		"fuel_type":       "petrol",
		"quantity_liters": 5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	id := decode[requestResponse](t, data).Request.ID

	// A finished delivery whose completion has not reached storage yet.
	done := fuelrescue.NewDelivery(
		geo.Coordinate{Lat: 17.535, Lon: 78.445},
		geo.Coordinate{Lat: 17.385, Lon: 78.486},
		fuelrescue.WithTickInterval(time.Millisecond),
		fuelrescue.WithProgressStep(50),
	)
	require.NoError(t, env.server.tracker.Start(id, done))
	<-done.Stopped()

	resp, data = env.do(t, http.MethodDelete, "/api/requests/"+id, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, string(data))

	stored, err := env.storage.GetRequest(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, fuelrescue.RequestInTransit, stored.Status)
}

func TestCreateRequestValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body any
	}{
		{"unknown station", map[string]any{"station_id": "nope", "user_location": map[string]float64{"lat": 17.5, "lng": 78.4}, "fuel_type": "petrol", "quantity_liters": 5}},
		{"bad fuel", map[string]any{"station_id": "m1", "user_location": map[string]float64{"lat": 17.5, "lng": 78.4}, "fuel_type": "lpg", "quantity_liters": 5}},
		{"bad quantity", map[string]any{"station_id": "m1", "user_location": map[string]float64{"lat": 17.5, "lng": 78.4}, "fuel_type": "petrol", "quantity_liters": 3}},
		{"no location", map[string]any{"station_id": "m1", "fuel_type": "petrol", "quantity_liters": 5}},
		{"not json", "{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := env.do(t, http.MethodPost, "/api/requests", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestRequestNotFound(t *testing.T) {
	env := newTestEnv(t)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		resp, _ := env.do(t, method, "/api/requests/missing", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, method)
	}
	resp, _ := env.do(t, http.MethodGet, "/api/requests/missing/track.gpx", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t, WithDeliveryOptions(fuelrescue.WithTickInterval(time.Hour)))

	env.do(t, http.MethodGet, "/api/stations?lat=17.385&lng=78.486", nil)
	resp, data := env.do(t, http.MethodPost, "/api/requests", map[string]any{
		"station_id":      "m1",
		"user_location":   map[string]float64{"lat": 17.5, "lng": 78.44},
		"fuel_type":       "petrol",
		"quantity_liters": 15,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))

	resp, data = env.do(t, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		TotalRequests    int                        `json:"total_requests"`
		TotalLiters      int                        `json:"total_liters"`
		ActiveDeliveries int                        `json:"active_deliveries"`
		Recent           []fuelrescue.RescueRequest `json:"recent"`
		Hotspots         []rescuedb.PopularLocation `json:"hotspots"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 1, got.TotalRequests)
	assert.Equal(t, 15, got.TotalLiters)
	assert.Equal(t, 1, got.ActiveDeliveries)
	require.Len(t, got.Recent, 1)
	assert.Equal(t, "Sri Krishna Fuel Station", got.Recent[0].StationName)
	require.Len(t, got.Hotspots, 1)
	assert.Equal(t, 17.39, got.Hotspots[0].Latitude)
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	input := map[string]string{
		"name":             "Meera",
		"email":            "meera@example.com",
		"password":         "secret1",
		"confirm_password": "secret1",
	}
	resp, data := env.do(t, http.MethodPost, "/api/register", input)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	registered := decode[userResponse](t, data)
	assert.Equal(t, "meera@example.com", registered.User.Email)
	assert.NotContains(t, string(data), "password")

	resp, _ = env.do(t, http.MethodPost, "/api/register", input)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, data = env.do(t, http.MethodPost, "/api/register", map[string]string{"email": "bad"})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	fields := decode[errorResponse](t, data).Fields
	assert.Equal(t, "Invalid email format", fields["email"])
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "password")

	resp, data = env.do(t, http.MethodPost, "/api/login", loginBody{Email: "meera@example.com", Password: "secret1"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Equal(t, "Meera", decode[userResponse](t, data).User.Name)

	resp, data = env.do(t, http.MethodPost, "/api/login", loginBody{Email: "meera@example.com", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid email or password.", decode[errorResponse](t, data).Error)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, WithRateLimit(2))

	for range 2 {
		resp, _ := env.do(t, http.MethodGet, "/api/dashboard", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, _ := env.do(t, http.MethodGet, "/api/dashboard", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- env.server.ListenAndServe(ctx, "127.0.0.1:0") }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
