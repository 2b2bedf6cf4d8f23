// Package config holds the settings shared by the CLI and the HTTP server.
package config

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rubiojr/fuelrescue/internal/fuelrescue"
	"github.com/rubiojr/fuelrescue/pkg/api"
)

const (
	DefaultDBPath     = "fuelrescue.db"
	DefaultListenAddr = ":8080"
	DefaultRateLimit  = 20
)

type Config struct {
	DBPath         string
	Mirrors        []string
	OSRMURL        string
	NominatimURL   string
	HTTPTimeout    time.Duration
	LogLevel       slog.Level
	RadiusKm       float64
	RouteCacheSize int
	RouteCacheTTL  time.Duration
	ListenAddr     string
	// RateLimit is the number of API requests allowed per client IP each minute.
	RateLimit int
}

type Option func(*Config)

// WithDBPath sets the SQLite database file
func WithDBPath(path string) Option {
	return func(c *Config) {
		if path != "" {
			c.DBPath = path
		}
	}
}

// WithMirrors sets the Overpass mirrors, tried in order
func WithMirrors(mirrors ...string) Option {
	return func(c *Config) {
		var cleaned []string
		for _, m := range mirrors {
			if m = strings.TrimSpace(m); m != "" {
				cleaned = append(cleaned, m)
			}
		}
		if len(cleaned) > 0 {
			c.Mirrors = cleaned
		}
	}
}

// WithOSRMURL sets the routing service base URL
func WithOSRMURL(url string) Option {
	return func(c *Config) {
		if url != "" {
			c.OSRMURL = url
		}
	}
}

// WithNominatimURL sets the geocoding server
func WithNominatimURL(url string) Option {
	return func(c *Config) {
		if url != "" {
			c.NominatimURL = url
		}
	}
}

// WithHTTPTimeout sets the timeout for outgoing HTTP requests
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.HTTPTimeout = timeout
		}
	}
}

// WithLogLevel parses level, falling back to info when it is not a level name
func WithLogLevel(level string) Option {
	return func(c *Config) {
		var l slog.Level
		if err := l.UnmarshalText([]byte(level)); err != nil {
			l = slog.LevelInfo
		}
		c.LogLevel = l
	}
}

// WithRadiusKm sets the station search radius
func WithRadiusKm(km float64) Option {
	return func(c *Config) {
		if km > 0 {
			c.RadiusKm = km
		}
	}
}

// WithRouteCache sets the size and entry lifetime of the route cache
func WithRouteCache(size int, ttl time.Duration) Option {
	return func(c *Config) {
		if size > 0 {
			c.RouteCacheSize = size
		}
		if ttl > 0 {
			c.RouteCacheTTL = ttl
		}
	}
}

// WithListenAddr sets the HTTP server address
func WithListenAddr(addr string) Option {
	return func(c *Config) {
		if addr != "" {
			c.ListenAddr = addr
		}
	}
}

// WithRateLimit sets the per IP request limit of the HTTP API
func WithRateLimit(perMinute int) Option {
	return func(c *Config) {
		if perMinute > 0 {
			c.RateLimit = perMinute
		}
	}
}

// New creates a new configuration with default values
func New(opts ...Option) *Config {
	cfg := &Config{
		DBPath:         DefaultDBPath,
		Mirrors:        append([]string(nil), api.DefaultOverpassMirrors...),
		OSRMURL:        api.DefaultOSRMURL,
		NominatimURL:   fuelrescue.DefaultNominatimServer,
		HTTPTimeout:    api.DefaultTimeout,
		LogLevel:       slog.LevelInfo,
		RadiusKm:       fuelrescue.DefaultRadiusKm,
		RouteCacheSize: fuelrescue.DefaultRouteCacheSize,
		RouteCacheTTL:  fuelrescue.DefaultRouteCacheTTL,
		ListenAddr:     DefaultListenAddr,
		RateLimit:      DefaultRateLimit,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// LoadFromEnv loads configuration from FUELRESCUE_* environment variables
func LoadFromEnv(opts ...Option) *Config {
	envOpts := []Option{
		WithDBPath(os.Getenv("FUELRESCUE_DB")),
		WithMirrors(strings.Split(os.Getenv("FUELRESCUE_MIRRORS"), ",")...),
		WithOSRMURL(os.Getenv("FUELRESCUE_OSRM_URL")),
		WithNominatimURL(os.Getenv("FUELRESCUE_NOMINATIM_URL")),
		WithHTTPTimeout(getDurationEnvOrDefault("FUELRESCUE_HTTP_TIMEOUT", api.DefaultTimeout)),
		WithLogLevel(getEnvOrDefault("FUELRESCUE_LOG_LEVEL", "info")),
		WithRadiusKm(getFloatEnvOrDefault("FUELRESCUE_RADIUS_KM", fuelrescue.DefaultRadiusKm)),
		WithRouteCache(
			getIntEnvOrDefault("FUELRESCUE_ROUTE_CACHE_SIZE", fuelrescue.DefaultRouteCacheSize),
			getDurationEnvOrDefault("FUELRESCUE_ROUTE_CACHE_TTL", fuelrescue.DefaultRouteCacheTTL),
		),
		WithListenAddr(os.Getenv("FUELRESCUE_LISTEN")),
		WithRateLimit(getIntEnvOrDefault("FUELRESCUE_RATE_LIMIT", DefaultRateLimit)),
	}
	return New(append(envOpts, opts...)...)
}

// NewLogger returns a text logger writing to w at the configured level.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: c.LogLevel}))
}

// OverpassMirrors builds an Overpass client per configured mirror.
func (c *Config) OverpassMirrors() []fuelrescue.Mirror {
	mirrors := make([]fuelrescue.Mirror, 0, len(c.Mirrors))
	for _, m := range c.Mirrors {
		mirrors = append(mirrors, api.NewOverpassAPI(m, c.HTTPTimeout))
	}
	return mirrors
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnvOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
