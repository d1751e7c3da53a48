package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fleetdesk/dispatch/internal/domain"
	"github.com/fleetdesk/dispatch/internal/engine"
	"github.com/fleetdesk/dispatch/internal/repo"
)

// TripService serves trip read models. Mutations go through the trip engine
// and ExecutionService; this service only assembles views.
type TripService struct {
	trips repo.TripRepo
}

// NewTripService constructs a TripService backed by the provided TripRepo.
func NewTripService(trips repo.TripRepo) *TripService {
	return &TripService{trips: trips}
}

// View returns the resolved read model for one trip without running the
// auto-completion pass. Returns domain.ErrNotFound for an unknown trip.
func (s *TripService) View(ctx context.Context, tripID uuid.UUID) (domain.TripView, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return domain.TripView{}, fmt.Errorf("service.TripService.View: %w", err)
	}
	view, err := engine.BuildView(trip)
	if err != nil {
		return domain.TripView{}, fmt.Errorf("service.TripService.View: %w", err)
	}
	return view, nil
}

// List returns one page of trips, newest departure first, plus the total
// count. Always returns a non-nil slice so callers can safely range over it.
func (s *TripService) List(ctx context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error) {
	trips, total, err := s.trips.List(ctx, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.TripService.List: %w", err)
	}
	if trips == nil {
		trips = []domain.Trip{}
	}
	return trips, total, nil
}
