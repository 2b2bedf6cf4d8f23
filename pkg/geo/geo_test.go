package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceSymmetric(t *testing.T) {
	points := []Coordinate{
		{Lat: 17.385, Lon: 78.486},
		{Lat: 17.535, Lon: 78.445},
		{Lat: 40.4168, Lon: -3.7038},
		{Lat: -33.8688, Lon: 151.2093},
		{Lat: 0, Lon: 0},
		{Lat: 89.9, Lon: 179.9},
	}

	for _, a := range points {
		for _, b := range points {
			assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-9, "distance(%v, %v)", a, b)
		}
	}
}

func TestDistanceToSelfIsZero(t *testing.T) {
	for _, c := range []Coordinate{{Lat: 17.385, Lon: 78.486}, {Lat: -45, Lon: 170}, {}} {
		assert.Equal(t, 0.0, Distance(c, c))
		assert.Equal(t, 0.0, DistanceKm(c, c))
	}
}

func TestDistanceKnownValues(t *testing.T) {
	tests := []struct {
		name string
		a, b Coordinate
		want float64
	}{
		{"one degree of latitude", Coordinate{0, 0}, Coordinate{1, 0}, 111.2},
		{"hyderabad to sri krishna", Coordinate{17.385, 78.486}, Coordinate{17.535, 78.445}, 17.2},
		{"madrid to barcelona", Coordinate{40.4168, -3.7038}, Coordinate{41.3874, 2.1686}, 505.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, DistanceKm(tt.a, tt.b), 1.0)
		})
	}
}

func TestRound(t *testing.T) {
	assert.Equal(t, 1.2, Round(1.24, 1))
	assert.Equal(t, 1.3, Round(1.25, 1))
	assert.Equal(t, -3.7, Round(-3.7038, 1))
}

func TestLerp(t *testing.T) {
	a := Coordinate{Lat: 10, Lon: 20}
	b := Coordinate{Lat: 20, Lon: 40}

	assert.Equal(t, a, Lerp(a, b, 0))
	assert.Equal(t, b, Lerp(a, b, 1))
	assert.Equal(t, Coordinate{Lat: 15, Lon: 30}, Lerp(a, b, 0.5))
	assert.Equal(t, b, Lerp(a, b, 1.5), "t is clamped")
	assert.Equal(t, a, Lerp(a, b, -1), "t is clamped")
}

func TestValid(t *testing.T) {
	assert.True(t, Coordinate{17.385, 78.486}.Valid())
	assert.True(t, Coordinate{-90, -180}.Valid())
	assert.False(t, Coordinate{91, 0}.Valid())
	assert.False(t, Coordinate{0, 181}.Valid())
	assert.False(t, Coordinate{math.NaN(), 0}.Valid())
	assert.True(t, Coordinate{}.IsZero())
}

func TestParseLatLong(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
		hasError bool
	}{
		{"17.385", 17.385, false},
		{"17,385", 17.385, false},
		{" -3.7038 ", -3.7038, false},
		{"invalid", 0, true},
		{"", 0, true},
	}

	for _, test := range tests {
		result, err := ParseLatLong(test.input)
		if test.hasError {
			require.Error(t, err, "ParseLatLong(%q)", test.input)
			continue
		}
		require.NoError(t, err, "ParseLatLong(%q)", test.input)
		assert.Equal(t, test.expected, result)
	}
}
