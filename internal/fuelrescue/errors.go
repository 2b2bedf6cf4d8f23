package fuelrescue

import "errors"

var (
	// ErrLocationDenied is returned when the user's position cannot be determined.
	ErrLocationDenied = errors.New("location denied")
	// ErrAllMirrorsFailed is recorded when no station mirror returned a usable result.
	ErrAllMirrorsFailed = errors.New("all station mirrors failed")
	// ErrRoutingFailed is returned when the routing service could not produce a route.
	ErrRoutingFailed = errors.New("routing failed")
	// ErrInvalidCoordinate is returned for coordinates outside the WGS84 ranges.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	// ErrNoLocation is returned by session operations that need a user position.
	ErrNoLocation = errors.New("user location unknown")
	// ErrNoSelection is returned by session operations that need a selected station.
	ErrNoSelection = errors.New("no station selected")
	// ErrStationNotFound is returned when selecting an ID not in the current result.
	ErrStationNotFound = errors.New("station not found")
	// ErrDeliveryActive is returned when starting a delivery that is already running.
	ErrDeliveryActive = errors.New("delivery already running")
	// ErrDeliveryFinished is returned when starting a delivery that already ended.
	ErrDeliveryFinished = errors.New("delivery already finished")
	// ErrInvalidRequest is returned for rescue requests failing validation.
	ErrInvalidRequest = errors.New("invalid rescue request")
	// ErrInvalidTransition is returned for rescue request status changes that aren't allowed.
	ErrInvalidTransition = errors.New("invalid status transition")
)
