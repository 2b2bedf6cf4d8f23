package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rubiojr/fuelrescue/internal/fuelrescue"
	"github.com/rubiojr/fuelrescue/internal/rescuedb"
	"github.com/rubiojr/fuelrescue/pkg/geo"
)

type createRequestBody struct {
	// StationID selects one of the built-in stations when Station is empty.
	StationID      string              `json:"station_id"`
	Station        *fuelrescue.Station `json:"station"`
	UserLocation   geo.Coordinate      `json:"user_location"`
	UserEmail      string              `json:"user_email"`
	FuelType       string              `json:"fuel_type"`
	QuantityLiters int                 `json:"quantity_liters"`
	Notes          string              `json:"notes"`
}

type requestResponse struct {
	Request  *fuelrescue.RescueRequest `json:"request"`
	Delivery *fuelrescue.DeliveryState `json:"delivery,omitempty"`
	Message  string                    `json:"message,omitempty"`
}

type dashboardResponse struct {
	*rescuedb.DashboardStats
	ActiveDeliveries int                        `json:"active_deliveries"`
	Hotspots         []rescuedb.PopularLocation `json:"hotspots"`
}

func (b *createRequestBody) station() (fuelrescue.Station, error) {
	if b.Station != nil {
		return *b.Station, nil
	}
	for _, st := range fuelrescue.LocalStations {
		if st.ID == b.StationID {
			return st, nil
		}
	}
	return fuelrescue.Station{}, fuelrescue.ErrStationNotFound
}

// handleCreateRequest stores a rescue request and dispatches its simulated delivery.
func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	tr := translations(r)

	var body createRequestBody
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	station, err := body.station()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	fuel, err := fuelrescue.ParseFuelType(body.FuelType)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	req, err := fuelrescue.NewRescueRequest(station, body.UserLocation, fuel, body.QuantityLiters, body.Notes)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}
	req.UserEmail = body.UserEmail

	if err := req.Transition(fuelrescue.RequestInTransit); err != nil {
		s.writeError(w, http.StatusInternalServerError, "Error dispatching request", err)
		return
	}
	if err := s.storage.SaveRequest(r.Context(), req); err != nil {
		s.log.Error("Error saving request", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Error saving request", err)
		return
	}

	id := req.ID
	opts := append([]fuelrescue.DeliveryOption{}, s.deliveryOpts...)
	opts = append(opts, fuelrescue.OnComplete(func(fuelrescue.DeliveryState) {
		s.setRequestStatus(id, fuelrescue.RequestCompleted)
	}))
	delivery := fuelrescue.NewDelivery(req.StationLocation, req.UserLocation, opts...)
	if err := s.tracker.Start(id, delivery); err != nil {
		s.setRequestStatus(id, fuelrescue.RequestCancelled)
		s.writeError(w, http.StatusServiceUnavailable, "Error starting delivery", err)
		return
	}

	s.log.Info("Rescue dispatched", "request", id, "station", req.StationName, "liters", req.QuantityLiters)
	state := delivery.State()
	s.writeJSON(w, http.StatusCreated, requestResponse{Request: req, Delivery: &state, Message: tr.RequestSent})
}

func (s *Server) setRequestStatus(id string, status fuelrescue.RequestStatus) {
	ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
	defer cancel()
	if _, err := s.storage.UpdateRequestStatus(ctx, id, status); err != nil {
		s.log.Error("Error updating request status", "request", id, "status", status, "error", err)
		return
	}
	s.log.Info("Request status updated", "request", id, "status", status)
}

// handleGetRequest returns the stored request and its live delivery state.
func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	tr := translations(r)
	id := chi.URLParam(r, "id")

	req, err := s.storage.GetRequest(r.Context(), id)
	if err != nil {
		s.writeStorageError(w, err)
		return
	}

	resp := requestResponse{Request: req}
	if d, ok := s.tracker.Get(id); ok {
		state := d.State()
		resp.Delivery = &state
	}
	switch req.Status {
	case fuelrescue.RequestCompleted:
		resp.Message = tr.RescueCompleted
	case fuelrescue.RequestCancelled:
		resp.Message = tr.RescueCancelled
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleCancelRequest stops the delivery and marks the request cancelled.
func (s *Server) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	tr := translations(r)
	id := chi.URLParam(r, "id")

	if _, err := s.storage.GetRequest(r.Context(), id); err != nil {
		s.writeStorageError(w, err)
		return
	}

	if !s.tracker.Cancel(id) {
		// The completion update may still be in flight.
		if d, ok := s.tracker.Get(id); ok && d.State().Status == fuelrescue.DeliveryCompleted {
			s.writeError(w, http.StatusConflict, "Request can no longer be cancelled", fuelrescue.ErrDeliveryFinished)
			return
		}
	}
	req, err := s.storage.UpdateRequestStatus(r.Context(), id, fuelrescue.RequestCancelled)
	if err != nil {
		if errors.Is(err, fuelrescue.ErrInvalidTransition) {
			s.writeError(w, http.StatusConflict, "Request can no longer be cancelled", err)
			return
		}
		s.writeStorageError(w, err)
		return
	}

	resp := requestResponse{Request: req, Message: tr.RescueCancelled}
	if d, ok := s.tracker.Get(id); ok {
		state := d.State()
		resp.Delivery = &state
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleRequestTrack exports the delivery's recorded positions as GPX.
func (s *Server) handleRequestTrack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	req, err := s.storage.GetRequest(r.Context(), id)
	if err != nil {
		s.writeStorageError(w, err)
		return
	}
	d, ok := s.tracker.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "No delivery track for request", nil)
		return
	}

	station := fuelrescue.Station{ID: req.StationID, Name: req.StationName, Location: req.StationLocation}
	data, err := fuelrescue.ExportGPX([]fuelrescue.Station{station}, nil, d.Track())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Error exporting track", err)
		return
	}

	w.Header().Set("Content-Type", "application/gpx+xml")
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`.gpx"`)
	if _, err := w.Write(data); err != nil {
		s.log.Error("Error writing track", "error", err)
	}
}

// handleDashboard serves request totals, running deliveries and search hotspots.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := s.storage.DashboardStats(r.Context())
	if err != nil {
		s.log.Error("Error computing dashboard", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Error computing dashboard", err)
		return
	}

	hotspots, err := s.storage.GetPopularLocationHeatmap(r.Context(), hotspotLimit)
	if err != nil {
		s.log.Error("Error computing hotspots", "error", err)
	}
	if hotspots == nil {
		hotspots = []rescuedb.PopularLocation{}
	}

	s.writeJSON(w, http.StatusOK, dashboardResponse{
		DashboardStats:   stats,
		ActiveDeliveries: s.tracker.Running(),
		Hotspots:         hotspots,
	})
}

func (s *Server) writeStorageError(w http.ResponseWriter, err error) {
	if errors.Is(err, rescuedb.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "Request not found", err)
		return
	}
	s.log.Error("Storage error", "error", err)
	s.writeError(w, http.StatusInternalServerError, "Storage error", err)
}
