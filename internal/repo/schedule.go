package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/fleetdesk/dispatch/internal/domain"
)

// ScheduleEntryRepo defines the persistence operations for ScheduleEntries.
// Entries are created when a leave request, vehicle-service request, or trip
// is approved; they are never mutated afterwards, only read and deleted.
type ScheduleEntryRepo interface {
	// Create inserts a new entry and returns the persisted record.
	Create(ctx context.Context, e domain.ScheduleEntry) (domain.ScheduleEntry, error)

	// GetByID retrieves a single entry.
	// Returns domain.ErrNotFound if no entry with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.ScheduleEntry, error)

	// ListByDriver returns all entries for one driver ordered by start time.
	ListByDriver(ctx context.Context, driverID uuid.UUID) ([]domain.ScheduleEntry, error)

	// Delete removes an entry by ID. Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

// pgScheduleEntryRepo is the Postgres implementation of ScheduleEntryRepo.
type pgScheduleEntryRepo struct {
	db db
}

// NewScheduleEntryRepo constructs a ScheduleEntryRepo backed by the provided
// db connection.
func NewScheduleEntryRepo(db db) ScheduleEntryRepo {
	return &pgScheduleEntryRepo{db: db}
}

func (r *pgScheduleEntryRepo) Create(ctx context.Context, e domain.ScheduleEntry) (domain.ScheduleEntry, error) {
	const q = `
		INSERT INTO schedule_entries (driver_id, origin, start_time, end_time)
		VALUES (@driver_id, @origin, @start_time, @end_time)
		RETURNING id, driver_id, origin, start_time, end_time, created_at`

	args := pgx.NamedArgs{
		"driver_id":  e.DriverID,
		"origin":     e.Origin,
		"start_time": e.Start,
		"end_time":   e.End,
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanScheduleEntry(row)
	if err != nil {
		return domain.ScheduleEntry{}, fmt.Errorf("repo.ScheduleEntryRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgScheduleEntryRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.ScheduleEntry, error) {
	const q = `
		SELECT id, driver_id, origin, start_time, end_time, created_at
		FROM schedule_entries
		WHERE id = @id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id})
	result, err := scanScheduleEntry(row)
	if err != nil {
		return domain.ScheduleEntry{}, fmt.Errorf("repo.ScheduleEntryRepo.GetByID: %w", err)
	}
	return result, nil
}

func (r *pgScheduleEntryRepo) ListByDriver(ctx context.Context, driverID uuid.UUID) ([]domain.ScheduleEntry, error) {
	const q = `
		SELECT id, driver_id, origin, start_time, end_time, created_at
		FROM schedule_entries
		WHERE driver_id = @driver_id
		ORDER BY start_time ASC`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"driver_id": driverID})
	if err != nil {
		return nil, fmt.Errorf("repo.ScheduleEntryRepo.ListByDriver: %w", err)
	}
	defer rows.Close()

	var entries []domain.ScheduleEntry
	for rows.Next() {
		e, err := scanScheduleEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.ScheduleEntryRepo.ListByDriver: scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ScheduleEntryRepo.ListByDriver: rows: %w", err)
	}

	return entries, nil
}

func (r *pgScheduleEntryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM schedule_entries WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.ScheduleEntryRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.ScheduleEntryRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// scanScheduleEntry maps a single database row into a domain.ScheduleEntry.
func scanScheduleEntry(s scanner) (domain.ScheduleEntry, error) {
	var (
		e        domain.ScheduleEntry
		id       pgtype.UUID
		driverID pgtype.UUID
	)

	err := s.Scan(&id, &driverID, &e.Origin, &e.Start, &e.End, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ScheduleEntry{}, domain.ErrNotFound
		}
		return domain.ScheduleEntry{}, err
	}

	e.ID = uuid.UUID(id.Bytes)
	e.DriverID = uuid.UUID(driverID.Bytes)
	return e, nil
}
