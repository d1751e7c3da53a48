package domain

import (
	"time"

	"github.com/google/uuid"
)

// ScheduleOrigin records what put an entry on a driver's calendar.
type ScheduleOrigin string

const (
	OriginTrip           ScheduleOrigin = "trip"
	OriginLeave          ScheduleOrigin = "leave"
	OriginVehicleService ScheduleOrigin = "vehicle_service"
	OriginGeneric        ScheduleOrigin = "generic"
)

// Valid reports whether o is a known schedule origin.
func (o ScheduleOrigin) Valid() bool {
	switch o {
	case OriginTrip, OriginLeave, OriginVehicleService, OriginGeneric:
		return true
	}
	return false
}

// ScheduleEntry is a committed time block on a driver's calendar.
// The interval is half-open: [Start, End).
type ScheduleEntry struct {
	ID        uuid.UUID      `json:"id"`
	DriverID  uuid.UUID      `json:"driver_id"`
	Origin    ScheduleOrigin `json:"origin"`
	Start     time.Time      `json:"start"`
	End       time.Time      `json:"end"`
	CreatedAt time.Time      `json:"created_at"`
}

// Overlaps reports whether the half-open interval [start, end) intersects
// this entry's [Start, End). Touching boundaries do not overlap.
func (e ScheduleEntry) Overlaps(start, end time.Time) bool {
	return e.Start.Before(end) && start.Before(e.End)
}

// ConflictResult is the outcome of a schedule conflict check.
// All conflicting entry ids are reported, not just the first.
type ConflictResult struct {
	IsConflicted        bool        `json:"is_conflicted"`
	ConflictingEntryIDs []uuid.UUID `json:"conflicting_entry_ids"`
}
