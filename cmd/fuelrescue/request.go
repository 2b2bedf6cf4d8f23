package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/rubiojr/fuelrescue/internal/fuelrescue"
)

func requestCommand() *cli.Command {
	return &cli.Command{
		Name:  "request",
		Usage: "Place a rescue request and follow its delivery",
		Flags: append(append(locationFlags(), deliveryFlags()...),
			&cli.StringFlag{
				Name:  "fuel",
				Usage: "Fuel type: petrol or diesel",
				Value: string(fuelrescue.FuelPetrol),
			},
			&cli.IntFlag{
				Name:  "liters",
				Usage: fmt.Sprintf("Quantity in liters, one of %v", fuelrescue.AllowedQuantities),
				Value: 5,
			},
			&cli.StringFlag{
				Name:  "notes",
				Usage: "Vehicle details or a hint about the exact location",
			},
			&cli.StringFlag{
				Name:  "email",
				Usage: "Email of the registered user placing the request",
			},
		),
		Action: requestAction,
	}
}

func requestAction(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := loadConfig(c)
	logger := newLogger(c, cfg)

	storage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer storage.Close()

	session, err := newSession(cfg, logger, storage, fuelrescue.WithTickInterval(c.Duration("tick")))
	if err != nil {
		return err
	}
	defer session.Close()

	fuel, err := fuelrescue.ParseFuelType(c.String("fuel"))
	if err != nil {
		return err
	}

	result, err := locateAndDiscover(ctx, c, cfg, session)
	if err != nil {
		return err
	}
	station, err := selectStation(session, result, c.String("station"))
	if err != nil {
		return err
	}
	pos, _ := session.Position()

	req, err := fuelrescue.NewRescueRequest(*station, pos, fuel, c.Int("liters"), c.String("notes"))
	if err != nil {
		return err
	}
	req.UserEmail = c.String("email")
	if err := req.Transition(fuelrescue.RequestInTransit); err != nil {
		return err
	}
	if err := storage.SaveRequest(ctx, req); err != nil {
		return err
	}
	fmt.Printf("Request Sent! %s: %d L of %s from %s\n", req.ID, req.QuantityLiters, req.FuelType, req.StationName)

	route := planRoute(ctx, session)
	delivery, deliveryErr := runDelivery(ctx, session, station)

	final := fuelrescue.RequestCompleted
	if deliveryErr != nil {
		final = fuelrescue.RequestCancelled
	}
	// ctx is already done after an interrupt.
	if _, err := storage.UpdateRequestStatus(context.Background(), req.ID, final); err != nil {
		return err
	}
	fmt.Printf("Request %s is %s\n", req.ID, final)

	if deliveryErr != nil {
		return deliveryErr
	}
	if path := c.String("gpx"); path != "" {
		return writeGPX(path, []fuelrescue.Station{*station}, route, delivery.Track())
	}
	return nil
}
