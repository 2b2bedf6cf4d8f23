package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/urfave/cli/v2"

	"github.com/rubiojr/fuelrescue/internal/account"
	"github.com/rubiojr/fuelrescue/internal/config"
	"github.com/rubiojr/fuelrescue/internal/fuelrescue"
	"github.com/rubiojr/fuelrescue/internal/server"
	"github.com/rubiojr/fuelrescue/pkg/api"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the JSON API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "Listen address",
				Value:   config.DefaultListenAddr,
				EnvVars: []string{"FUELRESCUE_LISTEN"},
			},
			&cli.IntFlag{
				Name:    "rate-limit",
				Usage:   "Requests allowed per client IP each minute",
				Value:   config.DefaultRateLimit,
				EnvVars: []string{"FUELRESCUE_RATE_LIMIT"},
			},
		},
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := loadConfig(c,
		config.WithListenAddr(c.String("addr")),
		config.WithRateLimit(c.Int("rate-limit")),
	)

	logger := httplog.NewLogger("fuelrescue", httplog.Options{
		JSON:            false,
		LogLevel:        cfg.LogLevel,
		Concise:         true,
		QuietDownPeriod: 10 * time.Second,
	})

	storage, err := openStorage(ctx, cfg, logger.Logger)
	if err != nil {
		return err
	}
	defer storage.Close()

	discoverer := fuelrescue.NewDiscoverer(cfg.OverpassMirrors(), logger.Logger,
		fuelrescue.WithRadiusKm(cfg.RadiusKm),
		fuelrescue.WithSearchLogger(storage),
	)
	planner, err := fuelrescue.NewRoutePlanner(
		api.NewRoutingAPI(cfg.OSRMURL, cfg.HTTPTimeout),
		cfg.RouteCacheSize,
		cfg.RouteCacheTTL,
		logger.Logger,
	)
	if err != nil {
		return err
	}

	srv := server.New(server.Deps{
		Discoverer: discoverer,
		Planner:    planner,
		Geocoder:   fuelrescue.NewGeocoder(cfg.NominatimURL),
		Storage:    storage,
		Accounts:   account.NewService(storage, logger.Logger),
		Logger:     logger,
	}, server.WithRateLimit(cfg.RateLimit))

	logger.Debug("Starting server on", "addr", cfg.ListenAddr, "mirrors", cfg.Mirrors)
	return srv.ListenAndServe(ctx, cfg.ListenAddr)
}
