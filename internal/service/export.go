package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/fleetdesk/dispatch/internal/domain"
	"github.com/fleetdesk/dispatch/internal/engine"
	"github.com/fleetdesk/dispatch/internal/repo"
)

// ExportService assembles a full flat export of all trips, stops, and
// resolved passenger groups for back-office reporting.
type ExportService struct {
	trips repo.TripRepo
}

// NewExportService constructs an ExportService backed by the provided repo.
func NewExportService(trips repo.TripRepo) *ExportService {
	return &ExportService{trips: trips}
}

// exportPageSize bounds each List call while paging through all trips.
const exportPageSize = 100

// Export returns one ExportRow per resolved passenger group per stop across
// all trips. Stops with no fulfillment records contribute one row with empty
// booking fields; trips with no stops contribute one row with empty stop
// fields, so nothing silently disappears from the manifest.
func (s *ExportService) Export(ctx context.Context) ([]domain.ExportRow, error) {
	rows := []domain.ExportRow{}

	for page := 1; ; page++ {
		trips, total, err := s.trips.List(ctx, domain.PaginationParams{Page: page, Limit: exportPageSize})
		if err != nil {
			return nil, fmt.Errorf("service.ExportService.Export: %w", err)
		}

		for _, t := range trips {
			full, err := s.trips.GetByID(ctx, t.ID)
			if err != nil {
				return nil, fmt.Errorf("service.ExportService.Export: trip %s: %w", t.ID, err)
			}
			tripRows, err := exportTrip(full)
			if err != nil {
				return nil, fmt.Errorf("service.ExportService.Export: trip %s: %w", t.ID, err)
			}
			rows = append(rows, tripRows...)
		}

		if int64(page*exportPageSize) >= total || len(trips) == 0 {
			break
		}
	}

	return rows, nil
}

// exportTrip flattens one trip into manifest rows using the resolved
// per-booking fulfillment records.
func exportTrip(trip domain.Trip) ([]domain.ExportRow, error) {
	view, err := engine.BuildView(trip)
	if err != nil {
		return nil, err
	}

	base := domain.ExportRow{
		TripID:        trip.ID.String(),
		DriverID:      trip.DriverID.String(),
		TripStatus:    string(trip.Status),
		DepartureTime: trip.DepartureTime.Format(time.RFC3339),
	}

	if len(view.Trip.Stops) == 0 {
		return []domain.ExportRow{base}, nil
	}

	var rows []domain.ExportRow
	for _, stop := range view.Trip.Stops {
		row := base
		row.StopOrder = stop.Order
		row.StopType = string(stop.Type)
		row.StopLocation = stop.Location
		row.ArrivalTime = stop.ArrivalTime.Format(time.RFC3339)
		row.ActualArrivalTime = stop.ActualArrivalTime

		groups := groupsAt(stop, view.Groups)
		if len(groups) == 0 {
			rows = append(rows, row)
			continue
		}
		for _, g := range groups {
			r := row
			r.BookingRequestID = g.BookingRequestID.String()
			r.ContactName = g.ContactName
			r.PassengerCount = g.PassengerCount
			r.GroupStatus = string(g.Status)
			rows = append(rows, r)
		}
	}
	return rows, nil
}

// groupsAt returns the resolved records for every booking present at the
// stop, in a stable order.
func groupsAt(stop domain.Stop, resolved map[uuid.UUID]domain.PassengerGroup) []domain.PassengerGroup {
	var out []domain.PassengerGroup
	for id, g := range resolved {
		if stop.HasBooking(id) {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].BookingRequestID.String() < out[j].BookingRequestID.String()
	})
	return out
}
