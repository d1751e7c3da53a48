package domain

import (
	"time"

	"github.com/google/uuid"
)

// StopType distinguishes pickup stops from drop-off stops.
type StopType string

const (
	StopPickup  StopType = "pickup"
	StopDropOff StopType = "drop_off"
)

// Valid reports whether t is a known stop type.
func (t StopType) Valid() bool {
	return t == StopPickup || t == StopDropOff
}

// Stop is a physical location visited during a trip.
// Order is unique within a trip and defines traversal order.
// ActualArrivalTime is nil until the driver (or the auto-completion loop)
// confirms arrival; its presence means the stop is complete.
type Stop struct {
	ID                uuid.UUID        `json:"id"`
	TripID            uuid.UUID        `json:"trip_id"`
	Order             int              `json:"order"`
	Type              StopType         `json:"type"`
	Location          string           `json:"location"`
	ArrivalTime       time.Time        `json:"arrival_time"`
	ActualArrivalTime *time.Time       `json:"actual_arrival_time,omitempty"`
	Groups            []PassengerGroup `json:"groups,omitempty"`
	Tickets           []Ticket         `json:"tickets,omitempty"`
}

// Completed reports whether arrival at this stop has been confirmed.
func (s Stop) Completed() bool {
	return s.ActualArrivalTime != nil
}

// HasBooking reports whether the booking appears at this stop, either as a
// group record or as a legacy ticket.
func (s Stop) HasBooking(bookingRequestID uuid.UUID) bool {
	for _, g := range s.Groups {
		if g.BookingRequestID == bookingRequestID {
			return true
		}
	}
	for _, t := range s.Tickets {
		if t.BookingRequestID == bookingRequestID {
			return true
		}
	}
	return false
}

// Ticket is the legacy single-passenger representation of fulfillment data.
// Stops created before the group model carry one ticket per passenger; the
// resolver collapses them into synthetic per-booking groups.
type Ticket struct {
	ID               uuid.UUID `json:"id"`
	StopID           uuid.UUID `json:"stop_id"`
	BookingRequestID uuid.UUID `json:"booking_request_id"`
	PassengerID      uuid.UUID `json:"passenger_id"`
	PassengerName    string    `json:"passenger_name"`
}
