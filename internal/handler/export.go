// GET /export handlers: the flat trip manifest in JSON or CSV.
// Returns all trips, stops, and resolved passenger groups as a flat table.
// Supports content negotiation via ?format=csv (CSV) or default (JSON).
package handler

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/fleetdesk/dispatch/internal/domain"
)

// csvHeaders defines the column names written as the first row of any CSV export.
var csvHeaders = []string{
	"trip_id", "driver_id", "trip_status", "departure_time",
	"stop_order", "stop_type", "stop_location", "arrival_time", "actual_arrival_time",
	"booking_request_id", "contact_name", "passenger_count", "group_status",
}

// getExport handles GET /export.
// It returns one row per resolved passenger group per stop across all trips.
// Use ?format=csv to receive CSV; default is JSON.
func (s *Server) getExport(w http.ResponseWriter, r *http.Request) {
	rows, err := s.export.Export(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		writeCSV(w, rows)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": exportJSON(rows)})
}

// exportRowJSON is the JSON shape of one manifest row. Optional fields are
// omitted when empty so stop-only and trip-only rows stay compact.
type exportRowJSON struct {
	TripID        string `json:"trip_id"`
	DriverID      string `json:"driver_id"`
	TripStatus    string `json:"trip_status"`
	DepartureTime string `json:"departure_time"`

	StopOrder         int    `json:"stop_order,omitempty"`
	StopType          string `json:"stop_type,omitempty"`
	StopLocation      string `json:"stop_location,omitempty"`
	ArrivalTime       string `json:"arrival_time,omitempty"`
	ActualArrivalTime string `json:"actual_arrival_time,omitempty"`

	BookingRequestID string `json:"booking_request_id,omitempty"`
	ContactName      string `json:"contact_name,omitempty"`
	PassengerCount   int    `json:"passenger_count,omitempty"`
	GroupStatus      string `json:"group_status,omitempty"`
}

func exportJSON(rows []domain.ExportRow) []exportRowJSON {
	out := make([]exportRowJSON, 0, len(rows))
	for _, r := range rows {
		out = append(out, exportRowJSON{
			TripID:            r.TripID,
			DriverID:          r.DriverID,
			TripStatus:        r.TripStatus,
			DepartureTime:     r.DepartureTime,
			StopOrder:         r.StopOrder,
			StopType:          r.StopType,
			StopLocation:      r.StopLocation,
			ArrivalTime:       r.ArrivalTime,
			ActualArrivalTime: formatOptionalTime(r.ActualArrivalTime),
			BookingRequestID:  r.BookingRequestID,
			ContactName:       r.ContactName,
			PassengerCount:    r.PassengerCount,
			GroupStatus:       r.GroupStatus,
		})
	}
	return out
}

// writeCSV encodes the rows as CSV with a header row.
func writeCSV(w http.ResponseWriter, rows []domain.ExportRow) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	// bytes.Buffer writes never fail.
	cw.Write(csvHeaders)
	for _, r := range rows {
		//nolint:errcheck
		cw.Write(csvRecord(r))
	}
	cw.Flush()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="dispatch_export.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck
}

// csvRecord encodes a domain.ExportRow as a flat string slice.
// Nil time pointers and zero counts are encoded as empty strings.
func csvRecord(r domain.ExportRow) []string {
	order, count := "", ""
	if r.StopType != "" {
		order = strconv.Itoa(r.StopOrder)
	}
	if r.BookingRequestID != "" {
		count = strconv.Itoa(r.PassengerCount)
	}
	return []string{
		r.TripID,
		r.DriverID,
		r.TripStatus,
		r.DepartureTime,
		order,
		r.StopType,
		r.StopLocation,
		r.ArrivalTime,
		formatOptionalTime(r.ActualArrivalTime),
		r.BookingRequestID,
		r.ContactName,
		count,
		r.GroupStatus,
	}
}

// formatOptionalTime returns the RFC3339 representation of t, or "" if t is nil.
func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
