// Package geo provides coordinate helpers: great-circle distances, rounding
// and linear interpolation between two points.
package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// EarthRadiusKm is the mean Earth radius used by Distance.
const EarthRadiusKm = 6371.0

const (
	decimalBase    = 10
	degreesPerHalf = 180
)

// Coordinate is a latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lng"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.5f,%.5f", c.Lat, c.Lon)
}

// IsZero reports whether c is the zero coordinate, which is treated as "unknown".
func (c Coordinate) IsZero() bool {
	return c.Lat == 0 && c.Lon == 0
}

// Valid reports whether c is within the WGS84 latitude/longitude ranges.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Distance returns the haversine distance between a and b in kilometers.
func Distance(a, b Coordinate) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)

	h := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Pow(math.Sin(dLon/2), 2)

	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// DistanceKm returns Distance rounded to one decimal place.
func DistanceKm(a, b Coordinate) float64 {
	return Round(Distance(a, b), 1)
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	factor := math.Pow(decimalBase, float64(places))
	return math.Round(v*factor) / factor
}

// Lerp returns the point a fraction t of the way from a to b, interpolating
// latitude and longitude independently. t is clamped to [0, 1] and the
// endpoints are returned exactly.
func Lerp(a, b Coordinate, t float64) Coordinate {
	switch {
	case t <= 0:
		return a
	case t >= 1:
		return b
	}
	return Coordinate{
		Lat: a.Lat + (b.Lat-a.Lat)*t,
		Lon: a.Lon + (b.Lon-a.Lon)*t,
	}
}

// ParseLatLong parses a latitude or longitude string, accepting a comma as
// the decimal separator.
func ParseLatLong(s string) (float64, error) {
	s = strings.Replace(strings.TrimSpace(s), ",", ".", 1)
	m, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}

	return m, nil
}

func toRad(deg float64) float64 {
	return deg * math.Pi / degreesPerHalf
}
