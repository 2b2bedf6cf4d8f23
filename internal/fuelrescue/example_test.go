package fuelrescue_test

import (
	"context"
	"fmt"

	"github.com/rubiojr/fuelrescue/internal/fuelrescue"
	"github.com/rubiojr/fuelrescue/pkg/geo"
)

func ExampleDiscoverer_Discover() {
	// no mirrors: only the built-in stations are searched
	d := fuelrescue.NewDiscoverer(nil, nil)

	result, err := d.Discover(context.Background(), geo.Coordinate{Lat: 17.53, Lon: 78.44}, fuelrescue.FilterAll)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	for _, s := range result.Stations {
		fmt.Printf("%s (%s): %.1f km\n", s.Name, s.Brand, s.DistanceKm)
	}
	// Output:
	// Sri Krishna Fuel Station (Bharat Petroleum): 0.8 km
	// Expressway Highway Bunk (Shell): 1.5 km
}
