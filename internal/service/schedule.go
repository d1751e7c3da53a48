package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fleetdesk/dispatch/internal/domain"
	"github.com/fleetdesk/dispatch/internal/repo"
)

// ScheduleMetrics is the instrumentation the schedule service reports.
// A nil ScheduleMetrics disables reporting.
type ScheduleMetrics interface {
	ConflictCheckInc(conflicted bool)
}

// ScheduleService implements the driver-calendar business logic: conflict
// detection over committed time blocks and the entry lifecycle around it.
type ScheduleService struct {
	entries repo.ScheduleEntryRepo
	metrics ScheduleMetrics
}

// NewScheduleService constructs a ScheduleService backed by the provided
// repo. metrics may be nil.
func NewScheduleService(entries repo.ScheduleEntryRepo, metrics ScheduleMetrics) *ScheduleService {
	return &ScheduleService{entries: entries, metrics: metrics}
}

// CheckConflict reports whether [start, end) intersects any committed entry
// on the driver's calendar. All conflicting entry ids are collected, not just
// the first. excludeEntryID, when non-nil, names an entry ignored by the
// check, used when rescheduling an existing commitment so it does not
// conflict with itself.
//
// Returns domain.ErrInvalidRange unless start is strictly before end.
func (s *ScheduleService) CheckConflict(ctx context.Context, driverID uuid.UUID, start, end time.Time, excludeEntryID *uuid.UUID) (domain.ConflictResult, error) {
	if !start.Before(end) {
		return domain.ConflictResult{}, fmt.Errorf("service.ScheduleService.CheckConflict: %w: start must be before end", domain.ErrInvalidRange)
	}

	entries, err := s.entries.ListByDriver(ctx, driverID)
	if err != nil {
		return domain.ConflictResult{}, fmt.Errorf("service.ScheduleService.CheckConflict: %w", err)
	}

	result := domain.ConflictResult{ConflictingEntryIDs: []uuid.UUID{}}
	for _, e := range entries {
		if excludeEntryID != nil && e.ID == *excludeEntryID {
			continue
		}
		if e.Overlaps(start, end) {
			result.IsConflicted = true
			result.ConflictingEntryIDs = append(result.ConflictingEntryIDs, e.ID)
		}
	}

	if s.metrics != nil {
		s.metrics.ConflictCheckInc(result.IsConflicted)
	}
	return result, nil
}

// CreateEntry validates and commits a new time block to the driver's
// calendar after a conflict check. Returns domain.ErrScheduleConflict when
// the block overlaps an existing entry, domain.ErrValidation for an unknown
// origin, and domain.ErrInvalidRange for a degenerate interval.
func (s *ScheduleService) CreateEntry(ctx context.Context, e domain.ScheduleEntry) (domain.ScheduleEntry, error) {
	if !e.Origin.Valid() {
		return domain.ScheduleEntry{}, fmt.Errorf("service.ScheduleService.CreateEntry: %w: unknown origin %q", domain.ErrValidation, e.Origin)
	}

	conflict, err := s.CheckConflict(ctx, e.DriverID, e.Start, e.End, nil)
	if err != nil {
		return domain.ScheduleEntry{}, fmt.Errorf("service.ScheduleService.CreateEntry: %w", err)
	}
	if conflict.IsConflicted {
		return domain.ScheduleEntry{}, fmt.Errorf("service.ScheduleService.CreateEntry: %w: overlaps %d entries",
			domain.ErrScheduleConflict, len(conflict.ConflictingEntryIDs))
	}

	created, err := s.entries.Create(ctx, e)
	if err != nil {
		return domain.ScheduleEntry{}, fmt.Errorf("service.ScheduleService.CreateEntry: %w", err)
	}
	return created, nil
}

// ListByDriver returns all committed entries for one driver ordered by start
// time. Always returns a non-nil slice so callers can safely range over it.
func (s *ScheduleService) ListByDriver(ctx context.Context, driverID uuid.UUID) ([]domain.ScheduleEntry, error) {
	entries, err := s.entries.ListByDriver(ctx, driverID)
	if err != nil {
		return nil, fmt.Errorf("service.ScheduleService.ListByDriver: %w", err)
	}
	if entries == nil {
		return []domain.ScheduleEntry{}, nil
	}
	return entries, nil
}

// DeleteEntry removes a committed entry, freeing its time block.
// Returns domain.ErrNotFound if the entry does not exist.
func (s *ScheduleService) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	if err := s.entries.Delete(ctx, id); err != nil {
		return fmt.Errorf("service.ScheduleService.DeleteEntry: %w", err)
	}
	return nil
}
