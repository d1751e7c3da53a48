// Package repo contains all database access logic for the dispatch API.
// Each resource has its own file with an interface and a Postgres implementation.
// No business logic lives here, only SQL and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/fleetdesk/dispatch/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, giving free
// per-test isolation without any manual cleanup.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TripRepo defines the persistence operations the execution service needs.
// Trips and stops are created by the dispatch/booking-combination process;
// this repo reads the aggregate and performs the guarded writes the trip
// engine drives (status transitions, arrival confirmation, group status).
type TripRepo interface {
	// GetByID retrieves a trip with its stops (ordered), group records, and
	// legacy tickets. Returns domain.ErrNotFound if no trip with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error)

	// List returns one page of trips without stop detail, newest departure
	// first, plus the total trip count.
	List(ctx context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error)

	// SetStatus performs a compare-and-set on the trip status and reports
	// whether a row changed. A false result means the trip was not in the
	// from status (or does not exist); the caller decides which.
	SetStatus(ctx context.Context, id uuid.UUID, from, to domain.TripStatus) (bool, error)

	// GetStop retrieves a single stop without its fulfillment records.
	GetStop(ctx context.Context, stopID uuid.UUID) (domain.Stop, error)

	// ArriveStop records the actual arrival time for a stop. A stop whose
	// arrival is already confirmed is left untouched (idempotent).
	// Returns domain.ErrNotFound for an unknown stop.
	ArriveStop(ctx context.Context, stopID uuid.UUID, at time.Time) error

	// GetStopGroup retrieves the fulfillment record for one booking at one
	// stop. When only legacy tickets exist for the booking, a pending group
	// is synthesized from them so driver actions work on old data too.
	GetStopGroup(ctx context.Context, stopID, bookingRequestID uuid.UUID) (domain.PassengerGroup, error)

	// SetGroupStatus updates the fulfillment status for a booking on every
	// stop row of the trip, materializing group rows from legacy tickets
	// where none exist yet. Fulfillment is per booking, not per stop: the
	// pickup row and drop-off row of one booking always agree.
	SetGroupStatus(ctx context.Context, tripID, bookingRequestID uuid.UUID, to domain.GroupStatus, reason string) error
}

// pgTripRepo is the Postgres implementation of TripRepo.
type pgTripRepo struct {
	db db
}

// NewTripRepo constructs a TripRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewTripRepo(db db) TripRepo {
	return &pgTripRepo{db: db}
}

func (r *pgTripRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	const q = `
		SELECT id, driver_id, vehicle_id, outsourced_vehicle, status, departure_time, created_at, updated_at
		FROM trips
		WHERE id = @id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id})
	trip, err := scanTrip(row)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", err)
	}

	stops, err := r.stopsByTrip(ctx, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", err)
	}
	trip.Stops = stops
	return trip, nil
}

func (r *pgTripRepo) List(ctx context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error) {
	const q = `
		SELECT id, driver_id, vehicle_id, outsourced_vehicle, status, departure_time, created_at, updated_at
		FROM trips
		ORDER BY departure_time DESC
		LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"limit": p.Limit, "offset": p.Offset()})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.List: %w", err)
	}
	defer rows.Close()

	var trips []domain.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repo.TripRepo.List: scan: %w", err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.List: rows: %w", err)
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM trips`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.List: count: %w", err)
	}

	return trips, total, nil
}

func (r *pgTripRepo) SetStatus(ctx context.Context, id uuid.UUID, from, to domain.TripStatus) (bool, error) {
	const q = `
		UPDATE trips
		SET status = @to, updated_at = now()
		WHERE id = @id AND status = @from`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "from": from, "to": to})
	if err != nil {
		return false, fmt.Errorf("repo.TripRepo.SetStatus: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *pgTripRepo) GetStop(ctx context.Context, stopID uuid.UUID) (domain.Stop, error) {
	const q = `
		SELECT id, trip_id, stop_order, type, location, arrival_time, actual_arrival_time
		FROM stops
		WHERE id = @id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": stopID})
	stop, err := scanStop(row)
	if err != nil {
		return domain.Stop{}, fmt.Errorf("repo.TripRepo.GetStop: %w", err)
	}
	return stop, nil
}

func (r *pgTripRepo) ArriveStop(ctx context.Context, stopID uuid.UUID, at time.Time) error {
	const q = `
		UPDATE stops
		SET actual_arrival_time = @at
		WHERE id = @id AND actual_arrival_time IS NULL`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": stopID, "at": at})
	if err != nil {
		return fmt.Errorf("repo.TripRepo.ArriveStop: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Zero rows: either the stop is unknown or arrival was already confirmed.
	var exists bool
	err = r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM stops WHERE id = @id)`, pgx.NamedArgs{"id": stopID}).Scan(&exists)
	if err != nil {
		return fmt.Errorf("repo.TripRepo.ArriveStop: %w", err)
	}
	if !exists {
		return fmt.Errorf("repo.TripRepo.ArriveStop: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *pgTripRepo) GetStopGroup(ctx context.Context, stopID, bookingRequestID uuid.UUID) (domain.PassengerGroup, error) {
	const q = `
		SELECT booking_request_id, stop_id, contact_name, contact_phone, passenger_count, status, absence_reason
		FROM stop_groups
		WHERE stop_id = @stop_id AND booking_request_id = @booking_request_id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"stop_id": stopID, "booking_request_id": bookingRequestID})
	g, err := scanGroup(row)
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.PassengerGroup{}, fmt.Errorf("repo.TripRepo.GetStopGroup: %w", err)
	}

	// No group row: fall back to legacy tickets and synthesize a pending group.
	const ticketQ = `
		SELECT count(DISTINCT passenger_id), COALESCE(min(passenger_name), '')
		FROM stop_tickets
		WHERE stop_id = @stop_id AND booking_request_id = @booking_request_id`

	var (
		count int
		name  string
	)
	err = r.db.QueryRow(ctx, ticketQ, pgx.NamedArgs{"stop_id": stopID, "booking_request_id": bookingRequestID}).Scan(&count, &name)
	if err != nil {
		return domain.PassengerGroup{}, fmt.Errorf("repo.TripRepo.GetStopGroup: tickets: %w", err)
	}
	if count == 0 {
		return domain.PassengerGroup{}, fmt.Errorf("repo.TripRepo.GetStopGroup: %w", domain.ErrNotFound)
	}

	return domain.PassengerGroup{
		BookingRequestID: bookingRequestID,
		StopID:           stopID,
		ContactName:      name,
		PassengerCount:   count,
		Status:           domain.GroupPending,
	}, nil
}

func (r *pgTripRepo) SetGroupStatus(ctx context.Context, tripID, bookingRequestID uuid.UUID, to domain.GroupStatus, reason string) error {
	args := pgx.NamedArgs{
		"trip_id":            tripID,
		"booking_request_id": bookingRequestID,
		"status":             to,
		"reason":             reason,
	}

	// First materialize group rows from legacy tickets for any stop of the
	// trip that carries this booking but has no group row yet, then update
	// every row of the booking in one go.
	const materializeQ = `
		INSERT INTO stop_groups (stop_id, booking_request_id, contact_name, passenger_count, status)
		SELECT s.id, @booking_request_id, COALESCE(min(t.passenger_name), ''), count(DISTINCT t.passenger_id), 'pending'
		FROM stops s
		JOIN stop_tickets t ON t.stop_id = s.id AND t.booking_request_id = @booking_request_id
		WHERE s.trip_id = @trip_id
		GROUP BY s.id
		ON CONFLICT (stop_id, booking_request_id) DO NOTHING`

	if _, err := r.db.Exec(ctx, materializeQ, args); err != nil {
		return fmt.Errorf("repo.TripRepo.SetGroupStatus: materialize: %w", err)
	}

	const q = `
		UPDATE stop_groups g
		SET status = @status, absence_reason = NULLIF(@reason, '')
		FROM stops s
		WHERE g.stop_id = s.id
		  AND s.trip_id = @trip_id
		  AND g.booking_request_id = @booking_request_id`

	tag, err := r.db.Exec(ctx, q, args)
	if err != nil {
		return fmt.Errorf("repo.TripRepo.SetGroupStatus: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.TripRepo.SetGroupStatus: %w", domain.ErrNotFound)
	}
	return nil
}

// stopsByTrip loads the full stop aggregate for one trip: stops in traversal
// order with their group records and legacy tickets attached.
func (r *pgTripRepo) stopsByTrip(ctx context.Context, tripID uuid.UUID) ([]domain.Stop, error) {
	const stopsQ = `
		SELECT id, trip_id, stop_order, type, location, arrival_time, actual_arrival_time
		FROM stops
		WHERE trip_id = @trip_id
		ORDER BY stop_order ASC`

	rows, err := r.db.Query(ctx, stopsQ, pgx.NamedArgs{"trip_id": tripID})
	if err != nil {
		return nil, fmt.Errorf("stops: %w", err)
	}
	defer rows.Close()

	var stops []domain.Stop
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		s, err := scanStop(rows)
		if err != nil {
			return nil, fmt.Errorf("stops: scan: %w", err)
		}
		index[s.ID] = len(stops)
		stops = append(stops, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stops: rows: %w", err)
	}

	const groupsQ = `
		SELECT g.booking_request_id, g.stop_id, g.contact_name, g.contact_phone, g.passenger_count, g.status, g.absence_reason
		FROM stop_groups g
		JOIN stops s ON s.id = g.stop_id
		WHERE s.trip_id = @trip_id`

	grows, err := r.db.Query(ctx, groupsQ, pgx.NamedArgs{"trip_id": tripID})
	if err != nil {
		return nil, fmt.Errorf("groups: %w", err)
	}
	defer grows.Close()

	for grows.Next() {
		g, err := scanGroup(grows)
		if err != nil {
			return nil, fmt.Errorf("groups: scan: %w", err)
		}
		if i, ok := index[g.StopID]; ok {
			stops[i].Groups = append(stops[i].Groups, g)
		}
	}
	if err := grows.Err(); err != nil {
		return nil, fmt.Errorf("groups: rows: %w", err)
	}

	const ticketsQ = `
		SELECT t.id, t.stop_id, t.booking_request_id, t.passenger_id, t.passenger_name
		FROM stop_tickets t
		JOIN stops s ON s.id = t.stop_id
		WHERE s.trip_id = @trip_id
		ORDER BY t.id`

	trows, err := r.db.Query(ctx, ticketsQ, pgx.NamedArgs{"trip_id": tripID})
	if err != nil {
		return nil, fmt.Errorf("tickets: %w", err)
	}
	defer trows.Close()

	for trows.Next() {
		var (
			t      domain.Ticket
			id     pgtype.UUID
			stopID pgtype.UUID
			bkID   pgtype.UUID
			paxID  pgtype.UUID
		)
		if err := trows.Scan(&id, &stopID, &bkID, &paxID, &t.PassengerName); err != nil {
			return nil, fmt.Errorf("tickets: scan: %w", err)
		}
		t.ID = uuid.UUID(id.Bytes)
		t.StopID = uuid.UUID(stopID.Bytes)
		t.BookingRequestID = uuid.UUID(bkID.Bytes)
		t.PassengerID = uuid.UUID(paxID.Bytes)
		if i, ok := index[t.StopID]; ok {
			stops[i].Tickets = append(stops[i].Tickets, t)
		}
	}
	if err := trows.Err(); err != nil {
		return nil, fmt.Errorf("tickets: rows: %w", err)
	}

	return stops, nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing the scan
// helpers to be reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// scanTrip maps a single database row into a domain.Trip (without stops).
func scanTrip(s scanner) (domain.Trip, error) {
	var (
		t         domain.Trip
		id        pgtype.UUID
		driverID  pgtype.UUID
		vehicleID pgtype.UUID
		outsrc    pgtype.Text
	)

	err := s.Scan(&id, &driverID, &vehicleID, &outsrc, &t.Status, &t.DepartureTime, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Trip{}, domain.ErrNotFound
		}
		return domain.Trip{}, err
	}

	t.ID = uuid.UUID(id.Bytes)
	t.DriverID = uuid.UUID(driverID.Bytes)
	if vehicleID.Valid {
		v := uuid.UUID(vehicleID.Bytes)
		t.VehicleID = &v
	}
	if outsrc.Valid {
		t.OutsourcedVehicle = outsrc.String
	}
	return t, nil
}

// scanStop maps a single database row into a domain.Stop (without children).
func scanStop(s scanner) (domain.Stop, error) {
	var (
		st      domain.Stop
		id      pgtype.UUID
		tripID  pgtype.UUID
		arrived pgtype.Timestamptz
	)

	err := s.Scan(&id, &tripID, &st.Order, &st.Type, &st.Location, &st.ArrivalTime, &arrived)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Stop{}, domain.ErrNotFound
		}
		return domain.Stop{}, err
	}

	st.ID = uuid.UUID(id.Bytes)
	st.TripID = uuid.UUID(tripID.Bytes)
	if arrived.Valid {
		at := arrived.Time
		st.ActualArrivalTime = &at
	}
	return st, nil
}

// scanGroup maps a single database row into a domain.PassengerGroup.
func scanGroup(s scanner) (domain.PassengerGroup, error) {
	var (
		g      domain.PassengerGroup
		bkID   pgtype.UUID
		stopID pgtype.UUID
		reason pgtype.Text
	)

	err := s.Scan(&bkID, &stopID, &g.ContactName, &g.ContactPhone, &g.PassengerCount, &g.Status, &reason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PassengerGroup{}, domain.ErrNotFound
		}
		return domain.PassengerGroup{}, err
	}

	g.BookingRequestID = uuid.UUID(bkID.Bytes)
	g.StopID = uuid.UUID(stopID.Bytes)
	if reason.Valid {
		g.AbsenceReason = reason.String
	}
	return g, nil
}
