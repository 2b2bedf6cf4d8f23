package config

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubiojr/fuelrescue/pkg/api"
)

func TestNewConfigWithDefaults(t *testing.T) {
	cfg := New()

	assert.Equal(t, "fuelrescue.db", cfg.DBPath)
	assert.Equal(t, api.DefaultOverpassMirrors, cfg.Mirrors)
	assert.Equal(t, "https://router.project-osrm.org/route/v1", cfg.OSRMURL)
	assert.Equal(t, "https://nominatim.openstreetmap.org/", cfg.NominatimURL)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 10.0, cfg.RadiusKm)
	assert.Equal(t, 256, cfg.RouteCacheSize)
	assert.Equal(t, 10*time.Minute, cfg.RouteCacheTTL)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 20, cfg.RateLimit)
}

func TestOptions(t *testing.T) {
	cfg := New(
		WithDBPath("/tmp/rescue.db"),
		WithMirrors(" https://a.example/api ", "", "https://b.example/api"),
		WithOSRMURL("http://osrm.local/route/v1"),
		WithHTTPTimeout(3*time.Second),
		WithLogLevel("DEBUG"),
		WithRadiusKm(25),
		WithRouteCache(16, time.Minute),
		WithRateLimit(100),
	)

	assert.Equal(t, "/tmp/rescue.db", cfg.DBPath)
	assert.Equal(t, []string{"https://a.example/api", "https://b.example/api"}, cfg.Mirrors)
	assert.Equal(t, "http://osrm.local/route/v1", cfg.OSRMURL)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 25.0, cfg.RadiusKm)
	assert.Equal(t, 16, cfg.RouteCacheSize)
	assert.Equal(t, time.Minute, cfg.RouteCacheTTL)
	assert.Equal(t, 100, cfg.RateLimit)
}

func TestOptionsIgnoreEmptyValues(t *testing.T) {
	cfg := New(
		WithDBPath(""),
		WithMirrors("", " "),
		WithHTTPTimeout(0),
		WithLogLevel("loud"),
		WithRadiusKm(-1),
	)

	assert.Equal(t, DefaultDBPath, cfg.DBPath)
	assert.Equal(t, api.DefaultOverpassMirrors, cfg.Mirrors)
	assert.Equal(t, api.DefaultTimeout, cfg.HTTPTimeout)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 10.0, cfg.RadiusKm)
}

func TestDefaultMirrorsAreCopied(t *testing.T) {
	cfg := New()
	cfg.Mirrors[0] = "changed"
	assert.NotEqual(t, "changed", api.DefaultOverpassMirrors[0])
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FUELRESCUE_DB", "env.db")
	t.Setenv("FUELRESCUE_MIRRORS", "https://one.example/api,https://two.example/api")
	t.Setenv("FUELRESCUE_HTTP_TIMEOUT", "5s")
	t.Setenv("FUELRESCUE_LOG_LEVEL", "warn")
	t.Setenv("FUELRESCUE_RADIUS_KM", "12.5")
	t.Setenv("FUELRESCUE_RATE_LIMIT", "not-a-number")

	cfg := LoadFromEnv(WithDBPath("flag.db"))

	assert.Equal(t, "flag.db", cfg.DBPath)
	assert.Equal(t, []string{"https://one.example/api", "https://two.example/api"}, cfg.Mirrors)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	assert.Equal(t, 12.5, cfg.RadiusKm)
	assert.Equal(t, DefaultRateLimit, cfg.RateLimit)
}

func TestOverpassMirrors(t *testing.T) {
	cfg := New(WithMirrors("https://one.example/api", "https://two.example/api"))

	mirrors := cfg.OverpassMirrors()
	require.Len(t, mirrors, 2)
	assert.Equal(t, "one.example", mirrors[0].Name())
	assert.Equal(t, "two.example", mirrors[1].Name())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithLogLevel("warn")).NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "station", "m1")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "station=m1")
}
