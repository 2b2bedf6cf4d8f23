package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/rubiojr/fuelrescue/internal/rescuedb"
)

func nearbyCommand() *cli.Command {
	return &cli.Command{
		Name:  "nearby",
		Usage: "List fuel stations near a location",
		Flags: append(locationFlags(),
			&cli.StringFlag{
				Name:  "gpx",
				Usage: "Write the stations as GPX waypoints to this file",
			},
			&cli.BoolFlag{
				Name:  "no-log",
				Usage: "Do not record the searched location in the database",
			},
		),
		Action: nearbyAction,
	}
}

func nearbyAction(c *cli.Context) error {
	ctx := context.Background()
	cfg := loadConfig(c)
	logger := newLogger(c, cfg)

	var storage *rescuedb.Storage
	if !c.Bool("no-log") {
		var err error
		storage, err = openStorage(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer storage.Close()
	}

	session, err := newSession(cfg, logger, storage)
	if err != nil {
		return err
	}
	defer session.Close()

	result, err := locateAndDiscover(ctx, c, cfg, session)
	if err != nil {
		return err
	}

	printStations(os.Stdout, result, cfg.RadiusKm)

	if path := c.String("gpx"); path != "" {
		return writeGPX(path, result.Stations, nil, nil)
	}
	return nil
}
