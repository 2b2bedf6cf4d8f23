package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "fuelrescue",
		Usage: "Find nearby fuel stations and dispatch emergency fuel deliveries",
		Flags: globalFlags(),
		Commands: []*cli.Command{
			nearbyCommand(),
			routeCommand(),
			deliverCommand(),
			requestCommand(),
			dashboardCommand(),
			registerCommand(),
			loginCommand(),
			migrateCommand(),
			purgeCommand(),
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
