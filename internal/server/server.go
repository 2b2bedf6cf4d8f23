// Package server exposes station discovery, routing and rescue requests over
// a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/httprate"

	"github.com/rubiojr/fuelrescue/internal/account"
	"github.com/rubiojr/fuelrescue/internal/fuelrescue"
	"github.com/rubiojr/fuelrescue/internal/rescuedb"
)

const (
	defaultRateLimit = 20
	shutdownTimeout  = 10 * time.Second
	statusTimeout    = 5 * time.Second
	maxBodyBytes     = 1 << 20
	hotspotLimit     = 10
)

// Geocoder resolves a free text location to a Locator.
type Geocoder interface {
	Locator(query string) fuelrescue.Locator
}

// Deps are the services the API is built on. Geocoder may be nil, in which
// case only coordinate searches are accepted.
type Deps struct {
	Discoverer *fuelrescue.Discoverer
	Planner    *fuelrescue.RoutePlanner
	Geocoder   Geocoder
	Storage    *rescuedb.Storage
	Accounts   *account.Service
	Logger     *httplog.Logger
}

type Server struct {
	discoverer   *fuelrescue.Discoverer
	planner      *fuelrescue.RoutePlanner
	geocoder     Geocoder
	storage      *rescuedb.Storage
	accounts     *account.Service
	tracker      *fuelrescue.Tracker
	httpLogger   *httplog.Logger
	log          *slog.Logger
	rateLimit    int
	deliveryOpts []fuelrescue.DeliveryOption
}

type Option func(*Server)

// WithRateLimit sets the number of requests a client IP may make per minute.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) {
		if perMinute > 0 {
			s.rateLimit = perMinute
		}
	}
}

// WithDeliveryOptions configures every simulated delivery the server starts.
func WithDeliveryOptions(opts ...fuelrescue.DeliveryOption) Option {
	return func(s *Server) {
		s.deliveryOpts = append(s.deliveryOpts, opts...)
	}
}

func New(deps Deps, opts ...Option) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = httplog.NewLogger("fuelrescue", httplog.Options{
			JSON:     false,
			LogLevel: slog.LevelInfo,
			Concise:  true,
		})
	}

	s := &Server{
		discoverer: deps.Discoverer,
		planner:    deps.Planner,
		geocoder:   deps.Geocoder,
		storage:    deps.Storage,
		accounts:   deps.Accounts,
		tracker:    fuelrescue.NewTracker(context.Background()),
		httpLogger: logger,
		log:        logger.Logger,
		rateLimit:  defaultRateLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(s.httpLogger))
	r.Use(middleware.Recoverer)
	r.Use(httprate.LimitByIP(s.rateLimit, time.Minute))

	r.Route("/api", func(r chi.Router) {
		r.Get("/stations", s.handleStations)
		r.Get("/route", s.handleRoute)

		r.Post("/requests", s.handleCreateRequest)
		r.Get("/requests/{id}", s.handleGetRequest)
		r.Delete("/requests/{id}", s.handleCancelRequest)
		r.Get("/requests/{id}/track.gpx", s.handleRequestTrack)

		r.Get("/dashboard", s.handleDashboard)

		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
	})

	return r
}

// ListenAndServe serves the API on addr until ctx is done, then shuts down
// and stops every running delivery.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Starting server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("error serving HTTP: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	if err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	s.log.Info("Server stopped")
	return nil
}

// Close cancels every running delivery and waits for their timers to stop.
func (s *Server) Close() {
	s.tracker.Close()
}
