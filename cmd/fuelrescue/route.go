package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"
)

func routeCommand() *cli.Command {
	return &cli.Command{
		Name:  "route",
		Usage: "Show the driving route to a nearby station",
		Flags: append(locationFlags(),
			&cli.StringFlag{
				Name:  "station",
				Usage: "Station ID as printed by nearby (defaults to the nearest)",
			},
			&cli.StringFlag{
				Name:  "gpx",
				Usage: "Write the station and route to this GPX file",
			},
		),
		Action: routeAction,
	}
}

func routeAction(c *cli.Context) error {
	ctx := context.Background()
	cfg := loadConfig(c)
	logger := newLogger(c, cfg)

	session, err := newSession(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer session.Close()

	result, err := locateAndDiscover(ctx, c, cfg, session)
	if err != nil {
		return err
	}
	station, err := selectStation(session, result, c.String("station"))
	if err != nil {
		return err
	}

	fmt.Printf("Station: %s (%.1f km straight line)\n", station.Name, station.DistanceKm)
	route, err := session.Route(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Route: %.1f km, %d min by road\n", route.DistanceKm(), route.Minutes())

	if path := c.String("gpx"); path != "" {
		return writeGPX(path, result.Stations, route, nil)
	}
	return nil
}
