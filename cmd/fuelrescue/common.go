package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/rubiojr/fuelrescue/internal/config"
	"github.com/rubiojr/fuelrescue/internal/fuelrescue"
	"github.com/rubiojr/fuelrescue/internal/rescuedb"
	"github.com/rubiojr/fuelrescue/pkg/api"
	"github.com/rubiojr/fuelrescue/pkg/geo"
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			Usage:   "Database file",
			Value:   config.DefaultDBPath,
			EnvVars: []string{"FUELRESCUE_DB"},
		},
		&cli.StringSliceFlag{
			Name:    "mirror",
			Usage:   "Overpass mirror URL, tried in the order given",
			EnvVars: []string{"FUELRESCUE_MIRRORS"},
		},
		&cli.StringFlag{
			Name:    "osrm-url",
			Usage:   "OSRM route service base URL",
			Value:   api.DefaultOSRMURL,
			EnvVars: []string{"FUELRESCUE_OSRM_URL"},
		},
		&cli.StringFlag{
			Name:    "nominatim-url",
			Usage:   "Nominatim server used to resolve --location",
			Value:   fuelrescue.DefaultNominatimServer,
			EnvVars: []string{"FUELRESCUE_NOMINATIM_URL"},
		},
		&cli.DurationFlag{
			Name:    "http-timeout",
			Usage:   "Timeout for outgoing HTTP requests",
			Value:   api.DefaultTimeout,
			EnvVars: []string{"FUELRESCUE_HTTP_TIMEOUT"},
		},
		&cli.Float64Flag{
			Name:    "radius",
			Aliases: []string{"r"},
			Usage:   "Search radius in kilometers",
			Value:   fuelrescue.DefaultRadiusKm,
			EnvVars: []string{"FUELRESCUE_RADIUS_KM"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			EnvVars: []string{"FUELRESCUE_LOG_LEVEL"},
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Print logs to stderr",
		},
	}
}

// locationFlags are shared by the commands that need the user's position.
func locationFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "location",
			Usage: "Place name to search around, resolved with Nominatim",
		},
		&cli.Float64Flag{
			Name:  "lat",
			Usage: "Latitude of the location",
		},
		&cli.Float64Flag{
			Name:  "long",
			Usage: "Longitude of the location",
		},
		&cli.StringFlag{
			Name:  "filter",
			Usage: "Station filter: all, diesel or 24/7",
			Value: string(fuelrescue.FilterAll),
		},
	}
}

// loadConfig merges FUELRESCUE_* variables with the flags given on the
// command line. extra options are applied last.
func loadConfig(c *cli.Context, extra ...config.Option) *config.Config {
	var opts []config.Option
	if c.IsSet("db") {
		opts = append(opts, config.WithDBPath(c.String("db")))
	}
	if c.IsSet("mirror") {
		var mirrors []string
		for _, m := range c.StringSlice("mirror") {
			mirrors = append(mirrors, strings.Split(m, ",")...)
		}
		opts = append(opts, config.WithMirrors(mirrors...))
	}
	if c.IsSet("osrm-url") {
		opts = append(opts, config.WithOSRMURL(c.String("osrm-url")))
	}
	if c.IsSet("nominatim-url") {
		opts = append(opts, config.WithNominatimURL(c.String("nominatim-url")))
	}
	if c.IsSet("http-timeout") {
		opts = append(opts, config.WithHTTPTimeout(c.Duration("http-timeout")))
	}
	if c.IsSet("radius") {
		opts = append(opts, config.WithRadiusKm(c.Float64("radius")))
	}
	if c.IsSet("log-level") {
		opts = append(opts, config.WithLogLevel(c.String("log-level")))
	}
	return config.LoadFromEnv(append(opts, extra...)...)
}

func newLogger(c *cli.Context, cfg *config.Config) *slog.Logger {
	if !c.Bool("verbose") {
		return slog.New(slog.DiscardHandler)
	}
	return cfg.NewLogger(os.Stderr)
}

func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*rescuedb.Storage, error) {
	storage, err := rescuedb.NewStorage(ctx, cfg.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("error initializing storage: %w", err)
	}
	return storage, nil
}

// newSession wires discovery and routing. storage may be nil, in which case
// searches are not logged.
func newSession(cfg *config.Config, logger *slog.Logger, storage *rescuedb.Storage, deliveryOpts ...fuelrescue.DeliveryOption) (*fuelrescue.Session, error) {
	discOpts := []fuelrescue.DiscovererOption{fuelrescue.WithRadiusKm(cfg.RadiusKm)}
	if storage != nil {
		discOpts = append(discOpts, fuelrescue.WithSearchLogger(storage))
	}
	discoverer := fuelrescue.NewDiscoverer(cfg.OverpassMirrors(), logger, discOpts...)

	planner, err := fuelrescue.NewRoutePlanner(
		api.NewRoutingAPI(cfg.OSRMURL, cfg.HTTPTimeout),
		cfg.RouteCacheSize,
		cfg.RouteCacheTTL,
		logger,
	)
	if err != nil {
		return nil, err
	}
	return fuelrescue.NewSession(discoverer, planner, logger, deliveryOpts...), nil
}

func locatorFromFlags(c *cli.Context, cfg *config.Config) (fuelrescue.Locator, error) {
	if loc := c.String("location"); loc != "" {
		geocoder := fuelrescue.NewGeocoder(cfg.NominatimURL)
		return fuelrescue.LocatorFunc(func(ctx context.Context) (geo.Coordinate, error) {
			place, err := geocoder.Geocode(ctx, loc)
			if err != nil {
				return geo.Coordinate{}, err
			}
			fmt.Println("Location found:", place.DisplayName)
			return place.Coordinate, nil
		}), nil
	}

	if !c.IsSet("lat") || !c.IsSet("long") {
		return nil, errors.New("location or latitude and longitude are required")
	}
	return fuelrescue.StaticLocator{Coordinate: geo.Coordinate{Lat: c.Float64("lat"), Lon: c.Float64("long")}}, nil
}

// locateAndDiscover positions the session and runs a discovery around it.
func locateAndDiscover(ctx context.Context, c *cli.Context, cfg *config.Config, session *fuelrescue.Session) (*fuelrescue.DiscoveryResult, error) {
	mode, err := fuelrescue.ParseFilterMode(c.String("filter"))
	if err != nil {
		return nil, err
	}
	locator, err := locatorFromFlags(c, cfg)
	if err != nil {
		return nil, err
	}
	if _, err := session.Locate(ctx, locator); err != nil {
		return nil, err
	}
	return session.Discover(ctx, mode)
}

// selectStation picks the station with the given ID, or the nearest one when id is empty.
func selectStation(session *fuelrescue.Session, result *fuelrescue.DiscoveryResult, id string) (*fuelrescue.Station, error) {
	if id == "" {
		if len(result.Stations) == 0 {
			return nil, errors.New("no stations found nearby")
		}
		id = result.Stations[0].ID
	}
	return session.Select(id)
}

func printStations(w io.Writer, result *fuelrescue.DiscoveryResult, radiusKm float64) {
	if result.Degraded {
		fmt.Fprintln(w, "Live servers busy. Showing local rescue points.")
	}
	if len(result.Stations) == 0 {
		fmt.Fprintf(w, "No stations found within %.1f km.\n", radiusKm)
		return
	}

	fmt.Fprintf(w, "Found %d stations within %.1f km:\n\n", len(result.Stations), radiusKm)
	for i, s := range result.Stations {
		var tags []string
		if s.Open247 {
			tags = append(tags, "24/7")
		}
		if s.HasDiesel {
			tags = append(tags, "diesel")
		}
		brand := s.Brand
		if brand == "" {
			brand = "-"
		}
		fmt.Fprintf(w, "%d. %s [%s]\n", i+1, s.Name, s.ID)
		fmt.Fprintf(w, "   Brand: %s\n", brand)
		fmt.Fprintf(w, "   Distance: %.1f km\n", s.DistanceKm)
		if len(tags) > 0 {
			fmt.Fprintf(w, "   Services: %s\n", strings.Join(tags, ", "))
		}
		fmt.Fprintf(w, "   Location: %.5f, %.5f\n\n", s.Location.Lat, s.Location.Lon)
	}
}

func writeGPX(path string, stations []fuelrescue.Station, route *api.Route, track []fuelrescue.TrackPoint) error {
	data, err := fuelrescue.ExportGPX(stations, route, track)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing GPX file: %w", err)
	}
	fmt.Println("GPX written to", path)
	return nil
}
