package fuelrescue

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubiojr/fuelrescue/pkg/geo"
)

func TestNewRescueRequest(t *testing.T) {
	station := LocalStations[0]

	req, err := NewRescueRequest(station, nearStation, FuelPetrol, 5, "  white hatchback near the toll  ")
	require.NoError(t, err)

	assert.NotEmpty(t, req.ID)
	assert.Equal(t, "m1", req.StationID)
	assert.Equal(t, station.Name, req.StationName)
	assert.Equal(t, RequestPending, req.Status)
	assert.Equal(t, "white hatchback near the toll", req.Notes)
	assert.False(t, req.CreatedAt.IsZero())

	other, err := NewRescueRequest(station, nearStation, FuelDiesel, 20, "")
	require.NoError(t, err)
	assert.NotEqual(t, req.ID, other.ID)
}

func TestNewRescueRequestValidation(t *testing.T) {
	petrolOnly := Station{ID: "p", Name: "Petrol Only", Location: geo.Coordinate{Lat: 17.4, Lon: 78.5}}

	tests := []struct {
		name    string
		station Station
		user    geo.Coordinate
		fuel    FuelType
		liters  int
		notes   string
	}{
		{"missing station", Station{}, nearStation, FuelPetrol, 5, ""},
		{"missing user location", LocalStations[0], geo.Coordinate{}, FuelPetrol, 5, ""},
		{"unknown fuel", LocalStations[0], nearStation, FuelType("lpg"), 5, ""},
		{"diesel unavailable", petrolOnly, nearStation, FuelDiesel, 5, ""},
		{"odd quantity", LocalStations[0], nearStation, FuelPetrol, 7, ""},
		{"zero quantity", LocalStations[0], nearStation, FuelPetrol, 0, ""},
		{"notes too long", LocalStations[0], nearStation, FuelPetrol, 5, strings.Repeat("x", 501)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRescueRequest(tt.station, tt.user, tt.fuel, tt.liters, tt.notes)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestRescueRequestTransitions(t *testing.T) {
	req, err := NewRescueRequest(LocalStations[1], nearStation, FuelPetrol, 10, "")
	require.NoError(t, err)

	assert.ErrorIs(t, req.Transition(RequestCompleted), ErrInvalidTransition)
	require.NoError(t, req.Transition(RequestInTransit))
	require.NoError(t, req.Transition(RequestCompleted))
	assert.ErrorIs(t, req.Transition(RequestCancelled), ErrInvalidTransition)
	assert.Equal(t, RequestCompleted, req.Status)

	assert.True(t, RequestPending.CanTransition(RequestCancelled))
	assert.True(t, RequestInTransit.CanTransition(RequestCancelled))
	assert.False(t, RequestCancelled.CanTransition(RequestInTransit))
}

func TestParseFuelType(t *testing.T) {
	ft, err := ParseFuelType("Petrol")
	require.NoError(t, err)
	assert.Equal(t, FuelPetrol, ft)

	ft, err = ParseFuelType(" DIESEL ")
	require.NoError(t, err)
	assert.Equal(t, FuelDiesel, ft)

	_, err = ParseFuelType("kerosene")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
