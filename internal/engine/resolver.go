package engine

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/fleetdesk/dispatch/internal/domain"
)

// ResolveGroups derives one canonical fulfillment record per booking request
// from raw stop data. Group records are canonical; stops carrying only legacy
// tickets contribute one synthetic group per booking, deduplicated by
// passenger id, with a pending initial status.
//
// A group whose raw status is picked_up (or already dropping_off) is promoted
// to the derived dropping_off state when next is that group's drop-off stop.
// A second pass re-scans the resolved map to catch bookings whose pickup stop
// was processed before next was known. The promotion is display-only and
// never persisted.
//
// ResolveGroups is a pure function: either a full map is produced or an error
// is returned when stop data is structurally invalid (missing booking id).
func ResolveGroups(stops []domain.Stop, next *domain.Stop) (map[uuid.UUID]domain.PassengerGroup, error) {
	resolved := make(map[uuid.UUID]domain.PassengerGroup)

	for _, stop := range stops {
		if len(stop.Groups) > 0 {
			for _, g := range stop.Groups {
				if g.BookingRequestID == uuid.Nil {
					return nil, fmt.Errorf("engine.ResolveGroups: stop %s group missing booking request id: %w", stop.ID, domain.ErrInvalidSequence)
				}
				g.StopID = stop.ID
				g.Status = promoteAt(g.Status, stop, next)
				resolved[g.BookingRequestID] = g
			}
			continue
		}

		// Legacy fallback: one synthetic single-passenger group per ticket,
		// collapsed per booking with passengers deduplicated by id.
		seen := make(map[uuid.UUID]map[uuid.UUID]bool)
		for _, t := range stop.Tickets {
			if t.BookingRequestID == uuid.Nil {
				return nil, fmt.Errorf("engine.ResolveGroups: stop %s ticket missing booking request id: %w", stop.ID, domain.ErrInvalidSequence)
			}
			passengers := seen[t.BookingRequestID]
			if passengers == nil {
				passengers = make(map[uuid.UUID]bool)
				seen[t.BookingRequestID] = passengers
			}
			if passengers[t.PassengerID] {
				continue
			}
			passengers[t.PassengerID] = true

			if g, ok := resolved[t.BookingRequestID]; ok {
				// Booking already seeded at an earlier stop; a ticket never
				// regresses its status, it only grows the passenger count
				// when this is the same synthetic group.
				if g.StopID == stop.ID {
					g.PassengerCount++
					resolved[t.BookingRequestID] = g
				}
				continue
			}
			resolved[t.BookingRequestID] = domain.PassengerGroup{
				BookingRequestID: t.BookingRequestID,
				StopID:           stop.ID,
				ContactName:      t.PassengerName,
				PassengerCount:   1,
				Status:           domain.GroupPending,
			}
		}
	}

	// Second pass: a booking picked up before next was known, whose drop-off
	// is next, is still en route to it.
	if next != nil && next.Type == domain.StopDropOff {
		for id, g := range resolved {
			if g.Status == domain.GroupPickedUp && next.HasBooking(id) {
				g.Status = domain.GroupDroppingOff
				resolved[id] = g
			}
		}
	}

	return resolved, nil
}

// promoteAt applies the first-pass dropping_off promotion: the group is at
// next, next is a drop-off, and the group is aboard the vehicle.
func promoteAt(status domain.GroupStatus, stop domain.Stop, next *domain.Stop) domain.GroupStatus {
	if next == nil || next.Type != domain.StopDropOff || stop.ID != next.ID {
		return status
	}
	if status == domain.GroupPickedUp || status == domain.GroupDroppingOff {
		return domain.GroupDroppingOff
	}
	return status
}
