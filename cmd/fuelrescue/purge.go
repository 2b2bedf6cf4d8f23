package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"
)

func purgeCommand() *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Delete finished requests and stale search logs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "days",
				Usage: "Keep records newer than this many days",
				Value: 30,
			},
		},
		Action: purgeAction,
	}
}

func purgeAction(c *cli.Context) error {
	ctx := context.Background()
	cfg := loadConfig(c)
	logger := newLogger(c, cfg)

	days := c.Int("days")
	if days < 0 {
		return fmt.Errorf("days must not be negative: %d", days)
	}

	storage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer storage.Close()

	deleted, err := storage.DeleteOldRequests(ctx, days)
	if err != nil {
		return err
	}
	if err := storage.VacuumDatabase(ctx); err != nil {
		return err
	}
	fmt.Printf("Deleted %d requests older than %d days\n", deleted, days)
	return nil
}
