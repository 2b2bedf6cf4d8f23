package main

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/rubiojr/fuelrescue/internal/rescuedb"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:   "migrate",
		Usage:  "Create or upgrade the database schema",
		Action: migrateAction,
	}
}

func migrateAction(c *cli.Context) error {
	ctx := context.Background()
	cfg := loadConfig(c)
	storage, err := rescuedb.NewStorageMigrate(ctx, cfg.DBPath, newLogger(c, cfg))
	if err != nil {
		return err
	}
	return storage.Close()
}
