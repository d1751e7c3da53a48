// Package domain contains the core data types for the fleet dispatch platform.
// This package has zero external dependencies beyond uuid and is imported by
// every other internal package (engine, repo, service, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// TripStatus is the lifecycle state of a trip.
type TripStatus string

const (
	TripScheduled TripStatus = "scheduled"
	TripOnGoing   TripStatus = "on_going"
	TripCompleted TripStatus = "completed"
	TripCancelled TripStatus = "cancelled"
)

// tripTransitions is the legal transition graph for trip statuses.
// Completed and cancelled are terminal and have no outgoing edges.
var tripTransitions = map[TripStatus][]TripStatus{
	TripScheduled: {TripOnGoing, TripCancelled},
	TripOnGoing:   {TripCompleted, TripCancelled},
	TripCompleted: {},
	TripCancelled: {},
}

// Valid reports whether s is a known trip status.
func (s TripStatus) Valid() bool {
	_, ok := tripTransitions[s]
	return ok
}

// Terminal reports whether a trip in this status can never change again.
func (s TripStatus) Terminal() bool {
	return s == TripCompleted || s == TripCancelled
}

// CanTransition reports whether moving from s to next is legal.
func (s TripStatus) CanTransition(next TripStatus) bool {
	for _, t := range tripTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Trip is a scheduled execution of one or more booking requests by a
// driver/vehicle, composed of ordered stops. Once a trip starts, the stop
// list is immutable in identity and order; only each stop's actual arrival
// and the fulfillment status of its groups mutate.
type Trip struct {
	ID                uuid.UUID  `json:"id"`
	DriverID          uuid.UUID  `json:"driver_id"`
	VehicleID         *uuid.UUID `json:"vehicle_id,omitempty"`
	OutsourcedVehicle string     `json:"outsourced_vehicle,omitempty"`
	Status            TripStatus `json:"status"`
	DepartureTime     time.Time  `json:"departure_time"`
	Stops             []Stop     `json:"stops,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// TripView is the resolved read model served to drivers and dispatchers:
// the trip with its stops sorted by order, one canonical fulfillment record
// per booking, and the id of the next actionable stop (nil when every stop
// is complete). It is recomputed on every read and never persisted.
type TripView struct {
	Trip       Trip                         `json:"trip"`
	Groups     map[uuid.UUID]PassengerGroup `json:"groups"`
	NextStopID *uuid.UUID                   `json:"next_stop_id,omitempty"`
}
