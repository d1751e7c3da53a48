package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fleetdesk/dispatch/internal/domain"
)

// Start begins a scheduled trip. The collaborator decides acceptance:
// started=false means the trip was not in a startable state (rejected, not an
// error). A failed start leaves the trip scheduled and is surfaced for manual
// retry; it is never retried automatically.
//
// On acceptance one auto-completion pass runs immediately so stops with no
// actionable passengers never block a freshly started trip.
func (e *Engine) Start(ctx context.Context, tripID uuid.UUID) (bool, domain.TripView, error) {
	unlock := e.lock(tripID)
	defer unlock()

	started, err := e.api.ConfirmStartTrip(ctx, tripID)
	if err != nil {
		return false, domain.TripView{}, fmt.Errorf("engine.Start: %w", err)
	}
	if !started {
		trip, err := e.api.GetTrip(ctx, tripID)
		if err != nil {
			return false, domain.TripView{}, fmt.Errorf("engine.Start: %w", err)
		}
		view, err := BuildView(trip)
		return false, view, err
	}

	e.log.InfoContext(ctx, "trip started", "trip_id", tripID)
	view, err := e.settle(ctx, tripID)
	return true, view, err
}

// DeriveStatus reports the lifecycle status a trip's stop state implies.
// Cancelled always wins; an on-going trip whose every stop is complete is
// completed. Anything else keeps its recorded status. Pure; used to guard
// trip-end confirmation against stops that still need action.
func DeriveStatus(trip domain.Trip) domain.TripStatus {
	if trip.Status == domain.TripCancelled {
		return domain.TripCancelled
	}
	if trip.Status != domain.TripOnGoing {
		return trip.Status
	}
	for _, s := range trip.Stops {
		if !s.Completed() {
			return domain.TripOnGoing
		}
	}
	if len(trip.Stops) == 0 {
		return domain.TripOnGoing
	}
	return domain.TripCompleted
}
