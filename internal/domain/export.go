package domain

import "time"

// ExportRow is a single row in the trip manifest export.
// It is a flat, denormalized view: one row per passenger group per stop,
// with trip fields repeated on every row. Stops with no groups (ticket-only
// legacy stops included, after resolution) yield one row with empty booking
// fields so the stop is still visible in the manifest.
type ExportRow struct {
	// Trip fields, repeated for every row of the trip.
	TripID        string
	DriverID      string
	TripStatus    string
	DepartureTime string // RFC3339

	// Stop fields.
	StopOrder         int
	StopType          string
	StopLocation      string
	ArrivalTime       string // RFC3339
	ActualArrivalTime *time.Time

	// Group fields; zero values when the stop has no fulfillment records.
	BookingRequestID string
	ContactName      string
	PassengerCount   int
	GroupStatus      string
}
