package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetdesk/dispatch/internal/domain"
	"github.com/fleetdesk/dispatch/internal/service"
)

func TestExportService_Export_FlattensGroupsPerStop(t *testing.T) {
	bookingID := uuid.New()
	trip := domain.Trip{
		ID:            uuid.New(),
		DriverID:      uuid.New(),
		Status:        domain.TripOnGoing,
		DepartureTime: time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
	}
	pickup := domain.Stop{
		ID: uuid.New(), TripID: trip.ID, Order: 1, Type: domain.StopPickup,
		Location:    "Central Station",
		ArrivalTime: time.Date(2026, 3, 10, 8, 15, 0, 0, time.UTC),
	}
	pickup.Groups = []domain.PassengerGroup{{
		BookingRequestID: bookingID,
		StopID:           pickup.ID,
		ContactName:      "Sam Lee",
		PassengerCount:   3,
		Status:           domain.GroupPickedUp,
	}}
	empty := domain.Stop{
		ID: uuid.New(), TripID: trip.ID, Order: 2, Type: domain.StopDropOff,
		Location:    "Airport T2",
		ArrivalTime: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	trip.Stops = []domain.Stop{pickup, empty}

	repo := &mockTripRepo{
		list: func(_ context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error) {
			if p.Page > 1 {
				return nil, 1, nil
			}
			return []domain.Trip{{ID: trip.ID}}, 1, nil
		},
		getByID: func(_ context.Context, _ uuid.UUID) (domain.Trip, error) { return trip, nil },
	}
	svc := service.NewExportService(repo)

	rows, err := svc.Export(context.Background())

	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, trip.ID.String(), rows[0].TripID)
	assert.Equal(t, 1, rows[0].StopOrder)
	assert.Equal(t, bookingID.String(), rows[0].BookingRequestID)
	assert.Equal(t, "Sam Lee", rows[0].ContactName)
	assert.Equal(t, 3, rows[0].PassengerCount)

	// The empty stop still shows up, with blank booking fields.
	assert.Equal(t, 2, rows[1].StopOrder)
	assert.Empty(t, rows[1].BookingRequestID)
}

func TestExportService_Export_PromotedStatusAppears(t *testing.T) {
	bookingID := uuid.New()
	trip := domain.Trip{
		ID:            uuid.New(),
		DriverID:      uuid.New(),
		Status:        domain.TripOnGoing,
		DepartureTime: time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
	}
	arrived := time.Date(2026, 3, 10, 8, 20, 0, 0, time.UTC)
	pickup := domain.Stop{
		ID: uuid.New(), TripID: trip.ID, Order: 1, Type: domain.StopPickup,
		Location: "Central Station", ArrivalTime: arrived, ActualArrivalTime: &arrived,
	}
	dropOff := domain.Stop{
		ID: uuid.New(), TripID: trip.ID, Order: 2, Type: domain.StopDropOff,
		Location: "Airport T2", ArrivalTime: arrived.Add(45 * time.Minute),
	}
	pickup.Groups = []domain.PassengerGroup{{
		BookingRequestID: bookingID, StopID: pickup.ID, Status: domain.GroupPickedUp, PassengerCount: 1,
	}}
	dropOff.Groups = []domain.PassengerGroup{{
		BookingRequestID: bookingID, StopID: dropOff.ID, Status: domain.GroupPickedUp, PassengerCount: 1,
	}}
	trip.Stops = []domain.Stop{pickup, dropOff}

	repo := &mockTripRepo{
		list: func(_ context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error) {
			if p.Page > 1 {
				return nil, 1, nil
			}
			return []domain.Trip{{ID: trip.ID}}, 1, nil
		},
		getByID: func(_ context.Context, _ uuid.UUID) (domain.Trip, error) { return trip, nil },
	}
	svc := service.NewExportService(repo)

	rows, err := svc.Export(context.Background())

	require.NoError(t, err)
	require.Len(t, rows, 2)
	// The export uses the resolved status: the next actionable stop is the
	// booking's drop-off, so the group reads dropping_off on both rows.
	assert.Equal(t, string(domain.GroupDroppingOff), rows[0].GroupStatus)
	assert.Equal(t, string(domain.GroupDroppingOff), rows[1].GroupStatus)
}

func TestExportService_Export_TripWithoutStops(t *testing.T) {
	trip := domain.Trip{
		ID:            uuid.New(),
		DriverID:      uuid.New(),
		Status:        domain.TripScheduled,
		DepartureTime: time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
	}

	repo := &mockTripRepo{
		list: func(_ context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error) {
			if p.Page > 1 {
				return nil, 1, nil
			}
			return []domain.Trip{{ID: trip.ID}}, 1, nil
		},
		getByID: func(_ context.Context, _ uuid.UUID) (domain.Trip, error) { return trip, nil },
	}
	svc := service.NewExportService(repo)

	rows, err := svc.Export(context.Background())

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, trip.ID.String(), rows[0].TripID)
	assert.Zero(t, rows[0].StopOrder)
	assert.Empty(t, rows[0].StopLocation)
}
