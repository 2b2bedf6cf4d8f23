package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/rubiojr/fuelrescue/internal/fuelrescue"
	"github.com/rubiojr/fuelrescue/pkg/api"
)

func deliverCommand() *cli.Command {
	return &cli.Command{
		Name:   "deliver",
		Usage:  "Simulate a fuel delivery from a nearby station to the location",
		Flags:  append(locationFlags(), deliveryFlags()...),
		Action: deliverAction,
	}
}

func deliveryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "station",
			Usage: "Station ID as printed by nearby (defaults to the nearest)",
		},
		&cli.DurationFlag{
			Name:  "tick",
			Usage: "Simulation tick interval",
			Value: fuelrescue.DefaultTickInterval,
		},
		&cli.StringFlag{
			Name:  "gpx",
			Usage: "Write the delivery track to this GPX file",
		},
	}
}

func deliverAction(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := loadConfig(c)
	logger := newLogger(c, cfg)

	session, err := newSession(cfg, logger, nil, fuelrescue.WithTickInterval(c.Duration("tick")))
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

	route := planRoute(ctx, session)
	delivery, err := runDelivery(ctx, session, station)
	if err != nil {
		return err
	}

	if path := c.String("gpx"); path != "" {
		return writeGPX(path, []fuelrescue.Station{*station}, route, delivery.Track())
	}
	return nil
}

// planRoute prints the route summary. A routing failure is reported and the
// delivery goes ahead without one.
func planRoute(ctx context.Context, session *fuelrescue.Session) *api.Route {
	route, err := session.Route(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Route unavailable: %v\n", err)
		return nil
	}
	fmt.Printf("Route: %.1f km, %d min by road\n", route.DistanceKm(), route.Minutes())
	return route
}

// runDelivery starts the simulation and prints progress until it completes
// or ctx is cancelled.
func runDelivery(ctx context.Context, session *fuelrescue.Session, station *fuelrescue.Station) (*fuelrescue.Delivery, error) {
	lastDecile := -1
	delivery, err := session.StartDelivery(ctx,
		fuelrescue.OnProgress(func(s fuelrescue.DeliveryState) {
			decile := int(math.Floor(s.Progress / 10))
			if decile == lastDecile {
				return
			}
			lastDecile = decile
			fmt.Printf("  %5.1f%%  %s\n", s.Progress, s.Position)
		}),
	)
	if err != nil {
		return nil, err
	}
	fmt.Printf("Dispatching fuel from %s...\n", station.Name)

	<-delivery.Stopped()
	if state := delivery.State(); state.Status != fuelrescue.DeliveryCompleted {
		return delivery, errors.New("delivery cancelled")
	}
	fmt.Println("Rescue Completed!")
	return delivery, nil
}
