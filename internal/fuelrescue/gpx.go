package fuelrescue

import (
	"fmt"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/rubiojr/fuelrescue/pkg/api"
)

const gpxCreator = "fuelrescue"

// ExportGPX writes stations as waypoints, route as a GPX route and the
// delivery track as a GPX track. Any of them may be empty.
func ExportGPX(stations []Station, route *api.Route, track []TrackPoint) ([]byte, error) {
	g := &gpx.GPX{
		Creator: gpxCreator,
		Name:    "Fuel rescue",
	}

	for i := range stations {
		s := &stations[i]
		g.Waypoints = append(g.Waypoints, gpx.GPXPoint{
			Point:       gpx.Point{Latitude: s.Location.Lat, Longitude: s.Location.Lon},
			Name:        s.Name,
			Description: fmt.Sprintf("%s %.1f km", s.Brand, s.DistanceKm),
			Symbol:      "Gas Station",
		})
	}

	if route != nil && len(route.Geometry) > 0 {
		r := gpx.GPXRoute{
			Name:        "Route to station",
			Description: fmt.Sprintf("%.1f km, %d min", route.DistanceKm(), route.Minutes()),
		}
		for _, c := range route.Geometry {
			r.Points = append(r.Points, gpx.GPXPoint{Point: gpx.Point{Latitude: c.Lat, Longitude: c.Lon}})
		}
		g.Routes = append(g.Routes, r)
	}

	if len(track) > 0 {
		seg := gpx.GPXTrackSegment{}
		for _, p := range track {
			seg.Points = append(seg.Points, gpx.GPXPoint{
				Point:     gpx.Point{Latitude: p.Position.Lat, Longitude: p.Position.Lon},
				Timestamp: p.Time,
			})
		}
		g.Tracks = append(g.Tracks, gpx.GPXTrack{
			Name:     "Delivery",
			Segments: []gpx.GPXTrackSegment{seg},
		})
	}

	data, err := g.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		return nil, fmt.Errorf("error encoding GPX: %w", err)
	}
	return data, nil
}
