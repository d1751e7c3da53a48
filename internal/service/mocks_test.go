package service_test

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fleetdesk/dispatch/internal/domain"
	"github.com/fleetdesk/dispatch/internal/repo"
)

// ---- mock repos ------------------------------------------------------------

// mockTripRepo is a hand-written test double for repo.TripRepo.
type mockTripRepo struct {
	getByID        func(ctx context.Context, id uuid.UUID) (domain.Trip, error)
	list           func(ctx context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error)
	setStatus      func(ctx context.Context, id uuid.UUID, from, to domain.TripStatus) (bool, error)
	getStop        func(ctx context.Context, stopID uuid.UUID) (domain.Stop, error)
	arriveStop     func(ctx context.Context, stopID uuid.UUID, at time.Time) error
	getStopGroup   func(ctx context.Context, stopID, bookingRequestID uuid.UUID) (domain.PassengerGroup, error)
	setGroupStatus func(ctx context.Context, tripID, bookingRequestID uuid.UUID, to domain.GroupStatus, reason string) error
}

func (m *mockTripRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	return m.getByID(ctx, id)
}
func (m *mockTripRepo) List(ctx context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error) {
	return m.list(ctx, p)
}
func (m *mockTripRepo) SetStatus(ctx context.Context, id uuid.UUID, from, to domain.TripStatus) (bool, error) {
	return m.setStatus(ctx, id, from, to)
}
func (m *mockTripRepo) GetStop(ctx context.Context, stopID uuid.UUID) (domain.Stop, error) {
	return m.getStop(ctx, stopID)
}
func (m *mockTripRepo) ArriveStop(ctx context.Context, stopID uuid.UUID, at time.Time) error {
	return m.arriveStop(ctx, stopID, at)
}
func (m *mockTripRepo) GetStopGroup(ctx context.Context, stopID, bookingRequestID uuid.UUID) (domain.PassengerGroup, error) {
	return m.getStopGroup(ctx, stopID, bookingRequestID)
}
func (m *mockTripRepo) SetGroupStatus(ctx context.Context, tripID, bookingRequestID uuid.UUID, to domain.GroupStatus, reason string) error {
	return m.setGroupStatus(ctx, tripID, bookingRequestID, to, reason)
}

// compile-time check: mockTripRepo must satisfy repo.TripRepo.
var _ repo.TripRepo = (*mockTripRepo)(nil)

// mockScheduleEntryRepo is a hand-written test double for repo.ScheduleEntryRepo.
type mockScheduleEntryRepo struct {
	create       func(ctx context.Context, e domain.ScheduleEntry) (domain.ScheduleEntry, error)
	getByID      func(ctx context.Context, id uuid.UUID) (domain.ScheduleEntry, error)
	listByDriver func(ctx context.Context, driverID uuid.UUID) ([]domain.ScheduleEntry, error)
	delete       func(ctx context.Context, id uuid.UUID) error
}

func (m *mockScheduleEntryRepo) Create(ctx context.Context, e domain.ScheduleEntry) (domain.ScheduleEntry, error) {
	return m.create(ctx, e)
}
func (m *mockScheduleEntryRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.ScheduleEntry, error) {
	return m.getByID(ctx, id)
}
func (m *mockScheduleEntryRepo) ListByDriver(ctx context.Context, driverID uuid.UUID) ([]domain.ScheduleEntry, error) {
	return m.listByDriver(ctx, driverID)
}
func (m *mockScheduleEntryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.delete(ctx, id)
}

// compile-time check: mockScheduleEntryRepo must satisfy repo.ScheduleEntryRepo.
var _ repo.ScheduleEntryRepo = (*mockScheduleEntryRepo)(nil)

// ---- mock event sink -------------------------------------------------------

// recordingSink captures published events for assertions.
type recordingSink struct {
	subjects []string
	fail     error
}

func (r *recordingSink) Publish(_ context.Context, subject string, _ any) error {
	r.subjects = append(r.subjects, subject)
	return r.fail
}
