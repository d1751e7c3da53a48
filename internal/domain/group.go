package domain

import "github.com/google/uuid"

// GroupStatus is the fulfillment state of a passenger group.
// dropping_off is a derived display state: the resolver promotes picked_up
// groups to it when the next actionable stop is their drop-off. It is never
// written to storage.
type GroupStatus string

const (
	GroupPending     GroupStatus = "pending"
	GroupPickedUp    GroupStatus = "picked_up"
	GroupDroppingOff GroupStatus = "dropping_off"
	GroupDroppedOff  GroupStatus = "dropped_off"
	GroupNoShow      GroupStatus = "no_show"
	GroupCancelled   GroupStatus = "cancelled"
)

// groupTransitions is the legal transition graph for group statuses.
// no_show, dropped_off, and cancelled are absorbing.
var groupTransitions = map[GroupStatus][]GroupStatus{
	GroupPending:     {GroupPickedUp, GroupNoShow, GroupCancelled},
	GroupPickedUp:    {GroupDroppingOff, GroupDroppedOff, GroupCancelled},
	GroupDroppingOff: {GroupDroppedOff},
	GroupDroppedOff:  {},
	GroupNoShow:      {},
	GroupCancelled:   {},
}

// Valid reports whether s is a known group status.
func (s GroupStatus) Valid() bool {
	_, ok := groupTransitions[s]
	return ok
}

// Terminal reports whether the group requires no further action anywhere
// on the trip.
func (s GroupStatus) Terminal() bool {
	return s == GroupDroppedOff || s == GroupNoShow || s == GroupCancelled
}

// CanTransition reports whether moving from s to next is legal.
func (s GroupStatus) CanTransition(next GroupStatus) bool {
	for _, t := range groupTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// SettledAt reports whether the group leaves nothing for the driver to do at
// a stop of the given type. At a pickup stop a picked_up group is settled;
// boarding already happened. At a drop-off stop picked_up is NOT settled:
// the passenger is still aboard and the drop-off confirmation is outstanding,
// so the stop must block the auto-completion look-ahead. Treating picked_up
// as settled there would let a trip end while passengers are in the vehicle.
func (s GroupStatus) SettledAt(t StopType) bool {
	switch t {
	case StopPickup:
		return s == GroupPickedUp || s.Terminal()
	case StopDropOff:
		return s.Terminal()
	default:
		return false
	}
}

// PassengerGroup is the fulfillment record for one booking request at a stop.
// It is keyed by BookingRequestID; the resolver derives one canonical record
// per booking across the whole trip on every read.
type PassengerGroup struct {
	BookingRequestID uuid.UUID   `json:"booking_request_id"`
	StopID           uuid.UUID   `json:"stop_id"`
	ContactName      string      `json:"contact_name"`
	ContactPhone     string      `json:"contact_phone"`
	PassengerCount   int         `json:"passenger_count"`
	Status           GroupStatus `json:"status"`
	AbsenceReason    string      `json:"absence_reason,omitempty"`
}
