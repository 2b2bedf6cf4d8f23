package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/rubiojr/fuelrescue/internal/fuelrescue"
)

func dashboardCommand() *cli.Command {
	return &cli.Command{
		Name:  "dashboard",
		Usage: "Show request totals, recent requests and search hotspots",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "hotspots",
				Usage: "Number of search hotspots to show",
				Value: 5,
			},
		},
		Action: dashboardAction,
	}
}

func dashboardAction(c *cli.Context) error {
	ctx := context.Background()
	cfg := loadConfig(c)
	logger := newLogger(c, cfg)

	storage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer storage.Close()

	stats, err := storage.DashboardStats(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Total fuel ordered: %d liters\n", stats.TotalLiters)
	fmt.Printf("Requests: %d", stats.TotalRequests)
	for _, status := range []fuelrescue.RequestStatus{
		fuelrescue.RequestPending,
		fuelrescue.RequestInTransit,
		fuelrescue.RequestCompleted,
		fuelrescue.RequestCancelled,
	} {
		if n := stats.ByStatus[status]; n > 0 {
			fmt.Printf(", %d %s", n, status)
		}
	}
	fmt.Println()

	if len(stats.Recent) > 0 {
		fmt.Println("\nRecent requests:")
		for _, r := range stats.Recent {
			fmt.Printf("  %s  %-28s %-10s %-7s %3d L  %s\n",
				r.ID[:8], r.StationName, r.Status, r.FuelType, r.QuantityLiters,
				r.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
	}

	hotspots, err := storage.GetPopularLocationHeatmap(ctx, c.Int("hotspots"))
	if err != nil {
		return err
	}
	if len(hotspots) > 0 {
		fmt.Println("\nSearch hotspots:")
		for _, h := range hotspots {
			fmt.Printf("  %.4f, %.4f  %d searches\n", h.Latitude, h.Longitude, h.SearchCount)
		}
	}
	return nil
}
