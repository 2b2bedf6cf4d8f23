package fuelrescue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rubiojr/fuelrescue/pkg/api"
	"github.com/rubiojr/fuelrescue/pkg/geo"
)

// Session holds the state of one station search: where the user is, what
// was found, which station is selected, the route to it and the delivery in
// progress. Close must be called when the owner goes away so a running
// delivery doesn't outlive it.
type Session struct {
	discoverer *Discoverer
	planner    *RoutePlanner
	deliveryOp []DeliveryOption
	log        *slog.Logger

	mu       sync.Mutex
	position *geo.Coordinate
	result   *DiscoveryResult
	selected *Station
	route    *api.Route
	delivery *Delivery
}

// NewSession creates an empty session. planner may be nil when routing isn't available.
func NewSession(discoverer *Discoverer, planner *RoutePlanner, logger *slog.Logger, deliveryOpts ...DeliveryOption) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{
		discoverer: discoverer,
		planner:    planner,
		deliveryOp: deliveryOpts,
		log:        logger,
	}
}

// Locate reads the user's position from l.
func (s *Session) Locate(ctx context.Context, l Locator) (geo.Coordinate, error) {
	pos, err := l.Locate(ctx)
	if err != nil {
		if !errors.Is(err, ErrLocationDenied) {
			err = fmt.Errorf("%w: %w", ErrLocationDenied, err)
		}
		return geo.Coordinate{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = &pos
	return pos, nil
}

// Position returns the user's position, if known.
func (s *Session) Position() (geo.Coordinate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.position == nil {
		return geo.Coordinate{}, false
	}
	return *s.position, true
}

// ClearLocation forgets the user's position. A running delivery is cancelled
// because it no longer has a destination.
func (s *Session) ClearLocation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = nil
	s.route = nil
	s.cancelDeliveryLocked()
}

// Discover replaces the station list with a fresh discovery around the user.
// The previous result, selection and route are discarded and a running
// delivery is cancelled.
func (s *Session) Discover(ctx context.Context, mode FilterMode) (*DiscoveryResult, error) {
	pos, ok := s.Position()
	if !ok {
		return nil, ErrNoLocation
	}

	result, err := s.discoverer.Discover(ctx, pos, mode)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = result
	s.selected = nil
	s.route = nil
	s.cancelDeliveryLocked()
	return result, nil
}

// Stations returns the stations of the last discovery.
func (s *Session) Stations() []Station {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return nil
	}
	return append([]Station(nil), s.result.Stations...)
}

// Select marks the station with the given ID as the rescue source.
func (s *Session) Select(id string) (*Station, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.result == nil {
		return nil, fmt.Errorf("%w: %s", ErrStationNotFound, id)
	}
	for i := range s.result.Stations {
		if s.result.Stations[i].ID == id {
			st := s.result.Stations[i]
			if s.selected == nil || s.selected.ID != id {
				s.route = nil
				s.cancelDeliveryLocked()
			}
			s.selected = &st
			return &st, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrStationNotFound, id)
}

// Selected returns the selected station, if any.
func (s *Session) Selected() (*Station, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return nil, false
	}
	st := *s.selected
	return &st, true
}

// Deselect clears the selection, cancelling a running delivery.
func (s *Session) Deselect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = nil
	s.route = nil
	s.cancelDeliveryLocked()
}

// Route plans the road route from the user to the selected station. On
// failure the session keeps no route; discovery and selection stay usable.
func (s *Session) Route(ctx context.Context) (*api.Route, error) {
	s.mu.Lock()
	pos, sel := s.position, s.selected
	s.mu.Unlock()

	if pos == nil {
		return nil, ErrNoLocation
	}
	if sel == nil {
		return nil, ErrNoSelection
	}
	if s.planner == nil {
		return nil, fmt.Errorf("%w: no routing service configured", ErrRoutingFailed)
	}

	route, err := s.planner.Plan(ctx, *pos, sel.Location)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected != nil && s.selected.ID == sel.ID {
		s.route = route
	}
	return route, nil
}

// RouteSummary returns the last planned route, if any.
func (s *Session) RouteSummary() (*api.Route, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.route, s.route != nil
}

// StartDelivery starts simulating a delivery from the selected station to the user.
func (s *Session) StartDelivery(ctx context.Context, opts ...DeliveryOption) (*Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.position == nil {
		return nil, ErrNoLocation
	}
	if s.selected == nil {
		return nil, ErrNoSelection
	}
	if s.delivery != nil && s.delivery.State().Status == DeliveryRunning {
		return nil, ErrDeliveryActive
	}

	all := append(append([]DeliveryOption(nil), s.deliveryOp...), opts...)
	d := NewDelivery(s.selected.Location, *s.position, all...)
	if err := d.Start(ctx); err != nil {
		return nil, err
	}
	s.delivery = d
	s.log.Info("Delivery started", "station", s.selected.Name, "to", s.position.String())
	return d, nil
}

// Delivery returns the current delivery, if any.
func (s *Session) Delivery() (*Delivery, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delivery, s.delivery != nil
}

// CancelDelivery stops a running delivery. It reports whether one was running.
func (s *Session) CancelDelivery() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelDeliveryLocked()
}

// Close releases the session. A running delivery is cancelled and its timer
// released before Close returns.
func (s *Session) Close() {
	s.mu.Lock()
	d := s.delivery
	s.cancelDeliveryLocked()
	s.mu.Unlock()

	if d != nil {
		<-d.Stopped()
	}
}

func (s *Session) cancelDeliveryLocked() bool {
	if s.delivery == nil {
		return false
	}
	cancelled := s.delivery.Cancel()
	if cancelled {
		s.log.Info("Delivery cancelled")
	}
	return cancelled
}
