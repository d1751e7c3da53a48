package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phpdave11/gofpdf"

	"github.com/fleetdesk/dispatch/internal/domain"
	"github.com/fleetdesk/dispatch/internal/engine"
	"github.com/fleetdesk/dispatch/internal/repo"
)

// TripSheetService renders the printable driver manifest for one trip:
// the stop itinerary with the resolved passenger groups at each stop.
type TripSheetService struct {
	trips repo.TripRepo
}

// NewTripSheetService constructs a TripSheetService backed by the provided repo.
func NewTripSheetService(trips repo.TripRepo) *TripSheetService {
	return &TripSheetService{trips: trips}
}

// Render builds the trip sheet PDF and a suggested filename.
// Returns domain.ErrNotFound for an unknown trip.
func (s *TripSheetService) Render(ctx context.Context, tripID uuid.UUID) ([]byte, string, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, "", fmt.Errorf("service.TripSheetService.Render: %w", err)
	}
	view, err := engine.BuildView(trip)
	if err != nil {
		return nil, "", fmt.Errorf("service.TripSheetService.Render: %w", err)
	}

	pdf := buildTripSheetPDF(view)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", fmt.Errorf("service.TripSheetService.Render: pdf output: %w", err)
	}

	filename := fmt.Sprintf("tripsheet_%s_%s.pdf",
		trip.DepartureTime.Format("2006-01-02"), trip.ID)
	return buf.Bytes(), filename, nil
}

func buildTripSheetPDF(view domain.TripView) *gofpdf.Fpdf {
	trip := view.Trip

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Trip Sheet", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "TRIP SHEET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	header := []string{
		fmt.Sprintf("Trip:      %s", trip.ID),
		fmt.Sprintf("Driver:    %s", trip.DriverID),
		fmt.Sprintf("Status:    %s", trip.Status),
		fmt.Sprintf("Departure: %s", trip.DepartureTime.Format("2006-01-02 15:04")),
	}
	if trip.VehicleID != nil {
		header = append(header, fmt.Sprintf("Vehicle:   %s", *trip.VehicleID))
	}
	if trip.OutsourcedVehicle != "" {
		header = append(header, fmt.Sprintf("Vehicle:   %s (outsourced)", trip.OutsourcedVehicle))
	}
	for _, line := range header {
		pdf.Cell(0, 6, line)
		pdf.Ln(6)
	}
	pdf.Ln(4)

	for _, stop := range trip.Stops {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 7, fmt.Sprintf("Stop %d  [%s]  %s", stop.Order, stop.Type, stop.Location))
		pdf.Ln(7)

		pdf.SetFont("Helvetica", "", 10)
		arrival := "planned " + stop.ArrivalTime.Format("15:04")
		if stop.ActualArrivalTime != nil {
			arrival += ", arrived " + stop.ActualArrivalTime.Format("15:04")
		}
		pdf.Cell(0, 5, arrival)
		pdf.Ln(6)

		groups := groupsAt(stop, view.Groups)
		if len(groups) == 0 {
			pdf.SetFont("Helvetica", "I", 10)
			pdf.Cell(0, 5, "no passenger groups")
			pdf.Ln(7)
			continue
		}
		for _, g := range groups {
			line := fmt.Sprintf("- %s (%d pax)  %s", orDash(g.ContactName), g.PassengerCount, g.Status)
			if g.ContactPhone != "" {
				line += "  " + g.ContactPhone
			}
			if g.AbsenceReason != "" {
				line += "  [" + g.AbsenceReason + "]"
			}
			pdf.MultiCell(0, 5, line, "", "", false)
		}
		pdf.Ln(3)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.Cell(0, 5, "Generated "+time.Now().UTC().Format("2006-01-02 15:04")+" UTC")

	return pdf
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
