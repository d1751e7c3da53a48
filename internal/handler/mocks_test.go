package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/fleetdesk/dispatch/internal/domain"
	"github.com/fleetdesk/dispatch/internal/handler"
)

// ---- mock servicers --------------------------------------------------------
// Hand-written test doubles; set only the method fields your test needs.

type mockTripServicer struct {
	view func(ctx context.Context, tripID uuid.UUID) (domain.TripView, error)
	list func(ctx context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error)
}

func (m *mockTripServicer) View(ctx context.Context, tripID uuid.UUID) (domain.TripView, error) {
	return m.view(ctx, tripID)
}
func (m *mockTripServicer) List(ctx context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error) {
	return m.list(ctx, p)
}

var _ handler.TripServicer = (*mockTripServicer)(nil)

type mockTripExecutor struct {
	start     func(ctx context.Context, tripID uuid.UUID) (bool, domain.TripView, error)
	pickup    func(ctx context.Context, tripID, bookingRequestID, stopID uuid.UUID) (domain.TripView, error)
	dropOff   func(ctx context.Context, tripID, bookingRequestID, stopID uuid.UUID) (domain.TripView, error)
	absence   func(ctx context.Context, tripID, bookingRequestID uuid.UUID, reason string, stopID uuid.UUID) (domain.TripView, error)
	reconcile func(ctx context.Context, tripID uuid.UUID) (domain.TripView, error)
}

func (m *mockTripExecutor) Start(ctx context.Context, tripID uuid.UUID) (bool, domain.TripView, error) {
	return m.start(ctx, tripID)
}
func (m *mockTripExecutor) Pickup(ctx context.Context, tripID, bookingRequestID, stopID uuid.UUID) (domain.TripView, error) {
	return m.pickup(ctx, tripID, bookingRequestID, stopID)
}
func (m *mockTripExecutor) DropOff(ctx context.Context, tripID, bookingRequestID, stopID uuid.UUID) (domain.TripView, error) {
	return m.dropOff(ctx, tripID, bookingRequestID, stopID)
}
func (m *mockTripExecutor) Absence(ctx context.Context, tripID, bookingRequestID uuid.UUID, reason string, stopID uuid.UUID) (domain.TripView, error) {
	return m.absence(ctx, tripID, bookingRequestID, reason, stopID)
}
func (m *mockTripExecutor) Reconcile(ctx context.Context, tripID uuid.UUID) (domain.TripView, error) {
	return m.reconcile(ctx, tripID)
}

var _ handler.TripExecutor = (*mockTripExecutor)(nil)

type mockScheduleServicer struct {
	check  func(ctx context.Context, driverID uuid.UUID, start, end time.Time, excludeEntryID *uuid.UUID) (domain.ConflictResult, error)
	create func(ctx context.Context, e domain.ScheduleEntry) (domain.ScheduleEntry, error)
	list   func(ctx context.Context, driverID uuid.UUID) ([]domain.ScheduleEntry, error)
	delete func(ctx context.Context, id uuid.UUID) error
}

func (m *mockScheduleServicer) CheckConflict(ctx context.Context, driverID uuid.UUID, start, end time.Time, excludeEntryID *uuid.UUID) (domain.ConflictResult, error) {
	return m.check(ctx, driverID, start, end, excludeEntryID)
}
func (m *mockScheduleServicer) CreateEntry(ctx context.Context, e domain.ScheduleEntry) (domain.ScheduleEntry, error) {
	return m.create(ctx, e)
}
func (m *mockScheduleServicer) ListByDriver(ctx context.Context, driverID uuid.UUID) ([]domain.ScheduleEntry, error) {
	return m.list(ctx, driverID)
}
func (m *mockScheduleServicer) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	return m.delete(ctx, id)
}

var _ handler.ScheduleServicer = (*mockScheduleServicer)(nil)

type mockExporter struct {
	export func(ctx context.Context) ([]domain.ExportRow, error)
}

func (m *mockExporter) Export(ctx context.Context) ([]domain.ExportRow, error) {
	return m.export(ctx)
}

var _ handler.Exporter = (*mockExporter)(nil)

type mockSheetRenderer struct {
	render func(ctx context.Context, tripID uuid.UUID) ([]byte, string, error)
}

func (m *mockSheetRenderer) Render(ctx context.Context, tripID uuid.UUID) ([]byte, string, error) {
	return m.render(ctx, tripID)
}

var _ handler.SheetRenderer = (*mockSheetRenderer)(nil)

// ---- helpers ---------------------------------------------------------------

// serverDeps bundles the mocks a test wires into the Server. Zero fields are
// left nil; tests only set what they exercise.
type serverDeps struct {
	trips    handler.TripServicer
	exec     handler.TripExecutor
	schedule handler.ScheduleServicer
	export   handler.Exporter
	sheets   handler.SheetRenderer
}

// newHTTPHandler wires a Server with the given mocks into a chi router.
// This mirrors exactly how main.go wires it in production.
func newHTTPHandler(d serverDeps) http.Handler {
	srv := handler.NewServer(d.trips, d.exec, d.schedule, d.export, d.sheets)
	r := chi.NewRouter()
	srv.Routes(r)
	return r
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

// viewFixture builds a minimal on-going trip view with one pending pickup.
func viewFixture() domain.TripView {
	tripID := uuid.New()
	bookingID := uuid.New()
	stop := domain.Stop{
		ID: uuid.New(), TripID: tripID, Order: 1, Type: domain.StopPickup,
		Location:    "Central Station",
		ArrivalTime: time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
	}
	stop.Groups = []domain.PassengerGroup{{
		BookingRequestID: bookingID, StopID: stop.ID,
		ContactName: "Sam Lee", PassengerCount: 2, Status: domain.GroupPending,
	}}
	nextID := stop.ID
	return domain.TripView{
		Trip: domain.Trip{
			ID: tripID, DriverID: uuid.New(), Status: domain.TripOnGoing,
			DepartureTime: time.Date(2026, 3, 10, 7, 30, 0, 0, time.UTC),
			Stops:         []domain.Stop{stop},
		},
		Groups: map[uuid.UUID]domain.PassengerGroup{
			bookingID: stop.Groups[0],
		},
		NextStopID: &nextID,
	}
}
