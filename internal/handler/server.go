// Package handler implements the HTTP handlers for the dispatch API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, trip.go, schedule.go, export.go) but all share the same
// Server struct so they can access its dependencies.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fleetdesk/dispatch/internal/domain"
	"github.com/fleetdesk/dispatch/spec"
)

// TripServicer defines the read operations the trip handler depends on.
// Defining the interface here (in the consumer package) follows the Go
// convention: "accept interfaces, return concrete types". It lets handler
// tests inject a mock without touching the database or service layer.
type TripServicer interface {
	View(ctx context.Context, tripID uuid.UUID) (domain.TripView, error)
	List(ctx context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error)
}

// TripExecutor defines the trip-execution operations driven by driver and
// dispatcher sessions. Every call returns the refreshed authoritative view.
type TripExecutor interface {
	Start(ctx context.Context, tripID uuid.UUID) (bool, domain.TripView, error)
	Pickup(ctx context.Context, tripID, bookingRequestID, stopID uuid.UUID) (domain.TripView, error)
	DropOff(ctx context.Context, tripID, bookingRequestID, stopID uuid.UUID) (domain.TripView, error)
	Absence(ctx context.Context, tripID, bookingRequestID uuid.UUID, reason string, stopID uuid.UUID) (domain.TripView, error)
	Reconcile(ctx context.Context, tripID uuid.UUID) (domain.TripView, error)
}

// ScheduleServicer defines the driver-calendar operations.
type ScheduleServicer interface {
	CheckConflict(ctx context.Context, driverID uuid.UUID, start, end time.Time, excludeEntryID *uuid.UUID) (domain.ConflictResult, error)
	CreateEntry(ctx context.Context, e domain.ScheduleEntry) (domain.ScheduleEntry, error)
	ListByDriver(ctx context.Context, driverID uuid.UUID) ([]domain.ScheduleEntry, error)
	DeleteEntry(ctx context.Context, id uuid.UUID) error
}

// Exporter assembles the flat manifest export.
type Exporter interface {
	Export(ctx context.Context) ([]domain.ExportRow, error)
}

// SheetRenderer renders the printable trip sheet PDF.
type SheetRenderer interface {
	Render(ctx context.Context, tripID uuid.UUID) ([]byte, string, error)
}

// Server holds the dependencies shared by all endpoint methods.
type Server struct {
	trips    TripServicer
	exec     TripExecutor
	schedule ScheduleServicer
	export   Exporter
	sheets   SheetRenderer
}

// NewServer constructs the Server with all its dependencies.
func NewServer(trips TripServicer, exec TripExecutor, schedule ScheduleServicer, export Exporter, sheets SheetRenderer) *Server {
	return &Server{
		trips:    trips,
		exec:     exec,
		schedule: schedule,
		export:   export,
		sheets:   sheets,
	}
}

// Routes registers every API endpoint on the given router. Middleware is the
// caller's concern; main.go attaches it before mounting these routes.
func (s *Server) Routes(r chi.Router) {
	r.Get("/healthz", s.getHealth)
	r.Get("/openapi.yaml", serveSpec)

	r.Route("/trips", func(r chi.Router) {
		r.Get("/", s.listTrips)
		r.Route("/{tripID}", func(r chi.Router) {
			r.Get("/", s.getTrip)
			r.Get("/sheet", s.getTripSheet)
			r.Post("/start", s.startTrip)
			r.Post("/reconcile", s.reconcileTrip)
			r.Post("/stops/{stopID}/pickup", s.confirmPickup)
			r.Post("/stops/{stopID}/dropoff", s.confirmDropOff)
			r.Post("/stops/{stopID}/absence", s.confirmAbsence)
		})
	})

	r.Route("/schedule-entries", func(r chi.Router) {
		r.Post("/", s.createScheduleEntry)
		r.Post("/check", s.checkScheduleConflict)
		r.Delete("/{entryID}", s.deleteScheduleEntry)
	})
	r.Get("/drivers/{driverID}/schedule-entries", s.listDriverSchedule)

	r.Get("/export", s.getExport)
}

// serveSpec serves the embedded OpenAPI document.
func serveSpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(spec.OpenAPI) //nolint:errcheck
}
