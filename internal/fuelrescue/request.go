package fuelrescue

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rubiojr/fuelrescue/pkg/geo"
)

const maxNotesLength = 500

// FuelType is the fuel a rescue delivers.
type FuelType string

const (
	FuelPetrol FuelType = "petrol"
	FuelDiesel FuelType = "diesel"
)

// ParseFuelType accepts "petrol" or "diesel" in any case.
func ParseFuelType(s string) (FuelType, error) {
	switch FuelType(strings.ToLower(strings.TrimSpace(s))) {
	case FuelPetrol:
		return FuelPetrol, nil
	case FuelDiesel:
		return FuelDiesel, nil
	default:
		return "", fmt.Errorf("%w: unknown fuel type %q", ErrInvalidRequest, s)
	}
}

// AllowedQuantities lists the liters a rescue can carry.
var AllowedQuantities = []int{2, 5, 10, 15, 20}

// RequestStatus tracks a rescue request through its lifecycle.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestInTransit RequestStatus = "in_transit"
	RequestCompleted RequestStatus = "completed"
	RequestCancelled RequestStatus = "cancelled"
)

var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestPending:   {RequestInTransit, RequestCancelled},
	RequestInTransit: {RequestCompleted, RequestCancelled},
}

// CanTransition reports whether a request may move from s to next.
func (s RequestStatus) CanTransition(next RequestStatus) bool {
	return slices.Contains(requestTransitions[s], next)
}

// RescueRequest is a user's request for fuel delivered from a station.
type RescueRequest struct {
	ID              string         `json:"id"`
	UserEmail       string         `json:"user_email,omitempty"`
	StationID       string         `json:"station_id"`
	StationName     string         `json:"station_name"`
	StationLocation geo.Coordinate `json:"station_location"`
	UserLocation    geo.Coordinate `json:"user_location"`
	FuelType        FuelType       `json:"fuel_type"`
	QuantityLiters  int            `json:"quantity_liters"`
	Notes           string         `json:"notes,omitempty"`
	Status          RequestStatus  `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// NewRescueRequest validates the order and returns a pending request.
func NewRescueRequest(station Station, user geo.Coordinate, fuel FuelType, liters int, notes string) (*RescueRequest, error) {
	if station.Name == "" || !station.Location.Valid() {
		return nil, fmt.Errorf("%w: station is required", ErrInvalidRequest)
	}
	if user.IsZero() || !user.Valid() {
		return nil, fmt.Errorf("%w: user location is required", ErrInvalidRequest)
	}
	if _, err := ParseFuelType(string(fuel)); err != nil {
		return nil, err
	}
	if fuel == FuelDiesel && !station.HasDiesel {
		return nil, fmt.Errorf("%w: %s does not sell diesel", ErrInvalidRequest, station.Name)
	}
	if !slices.Contains(AllowedQuantities, liters) {
		return nil, fmt.Errorf("%w: quantity must be one of %v liters", ErrInvalidRequest, AllowedQuantities)
	}
	notes = strings.TrimSpace(notes)
	if len(notes) > maxNotesLength {
		return nil, fmt.Errorf("%w: notes longer than %d characters", ErrInvalidRequest, maxNotesLength)
	}

	now := time.Now().UTC()
	return &RescueRequest{
		ID:              uuid.NewString(),
		StationID:       station.ID,
		StationName:     station.Name,
		StationLocation: station.Location,
		UserLocation:    user,
		FuelType:        fuel,
		QuantityLiters:  liters,
		Notes:           notes,
		Status:          RequestPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Transition moves the request to next if allowed.
func (r *RescueRequest) Transition(next RequestStatus) error {
	if !r.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, next)
	}
	r.Status = next
	r.UpdatedAt = time.Now().UTC()
	return nil
}
