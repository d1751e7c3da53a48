// Package service contains the business logic for the dispatch API.
// Services validate inputs, enforce transition rules, and orchestrate repo
// calls. No SQL lives here: services depend on repo interfaces, not
// implementations.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fleetdesk/dispatch/internal/domain"
	"github.com/fleetdesk/dispatch/internal/engine"
	"github.com/fleetdesk/dispatch/internal/repo"
)

// EventSink publishes domain events to the message bus. A nil sink disables
// publishing; publish failures are logged, never surfaced, because events are
// a side channel and must not fail driver actions.
type EventSink interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// ExecMetrics is the instrumentation the execution service reports.
// A nil ExecMetrics disables reporting.
type ExecMetrics interface {
	TripStartedInc()
	TripCompletedInc()
}

// ExecutionService owns the server-authoritative state changes of trip
// execution: lifecycle transitions, arrival confirmations, and per-booking
// fulfillment status. It implements engine.TripAPI, so the trip engine drives
// it the same way the mobile client drives the backend.
type ExecutionService struct {
	trips   repo.TripRepo
	events  EventSink
	metrics ExecMetrics
	log     *slog.Logger

	// now is swapped in tests to pin arrival timestamps.
	now func() time.Time
}

// compile-time check: the engine must be able to drive this service.
var _ engine.TripAPI = (*ExecutionService)(nil)

// NewExecutionService constructs an ExecutionService. events and metrics may
// be nil.
func NewExecutionService(trips repo.TripRepo, events EventSink, metrics ExecMetrics, log *slog.Logger) *ExecutionService {
	if log == nil {
		log = slog.Default()
	}
	return &ExecutionService{
		trips:   trips,
		events:  events,
		metrics: metrics,
		log:     log,
		now:     time.Now,
	}
}

// GetTrip returns the full trip aggregate.
func (s *ExecutionService) GetTrip(ctx context.Context, tripID uuid.UUID) (domain.Trip, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.ExecutionService.GetTrip: %w", err)
	}
	return trip, nil
}

// ConfirmPickup records that the group boarded at the given pickup stop.
// A group already picked up is a no-op; any other current status is an
// illegal transition. Fulfillment status is per booking, so the update is
// mirrored onto every stop row of the booking.
func (s *ExecutionService) ConfirmPickup(ctx context.Context, tripID, bookingRequestID, stopID uuid.UUID) error {
	g, err := s.groupAt(ctx, tripID, stopID, bookingRequestID, domain.StopPickup)
	if err != nil {
		return fmt.Errorf("service.ExecutionService.ConfirmPickup: %w", err)
	}

	switch g.Status {
	case domain.GroupPickedUp:
		return nil
	case domain.GroupPending:
	default:
		return fmt.Errorf("service.ExecutionService.ConfirmPickup: %w: %s -> %s",
			domain.ErrIllegalTransition, g.Status, domain.GroupPickedUp)
	}

	if err := s.trips.SetGroupStatus(ctx, tripID, bookingRequestID, domain.GroupPickedUp, ""); err != nil {
		return fmt.Errorf("service.ExecutionService.ConfirmPickup: %w", err)
	}
	return nil
}

// ConfirmDropOff records that the group left the vehicle at the given
// drop-off stop. A group already dropped off is a no-op; only a picked-up
// group can be dropped off.
func (s *ExecutionService) ConfirmDropOff(ctx context.Context, tripID, bookingRequestID, stopID uuid.UUID) error {
	g, err := s.groupAt(ctx, tripID, stopID, bookingRequestID, domain.StopDropOff)
	if err != nil {
		return fmt.Errorf("service.ExecutionService.ConfirmDropOff: %w", err)
	}

	switch g.Status {
	case domain.GroupDroppedOff:
		return nil
	case domain.GroupPickedUp:
	default:
		return fmt.Errorf("service.ExecutionService.ConfirmDropOff: %w: %s -> %s",
			domain.ErrIllegalTransition, g.Status, domain.GroupDroppedOff)
	}

	if err := s.trips.SetGroupStatus(ctx, tripID, bookingRequestID, domain.GroupDroppedOff, ""); err != nil {
		return fmt.Errorf("service.ExecutionService.ConfirmDropOff: %w", err)
	}
	return nil
}

// ConfirmAbsence marks the group a no-show at its pickup stop with the given
// reason. A group already marked no-show is a no-op; only a pending group can
// be absent. Returns domain.ErrValidation when reason is blank.
func (s *ExecutionService) ConfirmAbsence(ctx context.Context, tripID, bookingRequestID uuid.UUID, reason string, stopID uuid.UUID) error {
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("service.ExecutionService.ConfirmAbsence: %w: reason is required", domain.ErrValidation)
	}

	g, err := s.groupAt(ctx, tripID, stopID, bookingRequestID, domain.StopPickup)
	if err != nil {
		return fmt.Errorf("service.ExecutionService.ConfirmAbsence: %w", err)
	}

	switch g.Status {
	case domain.GroupNoShow:
		return nil
	case domain.GroupPending:
	default:
		return fmt.Errorf("service.ExecutionService.ConfirmAbsence: %w: %s -> %s",
			domain.ErrIllegalTransition, g.Status, domain.GroupNoShow)
	}

	if err := s.trips.SetGroupStatus(ctx, tripID, bookingRequestID, domain.GroupNoShow, reason); err != nil {
		return fmt.Errorf("service.ExecutionService.ConfirmAbsence: %w", err)
	}
	return nil
}

// ConfirmArriveStop records the actual arrival time for a stop. Arriving at
// a stop that already has an arrival confirmed is a no-op.
func (s *ExecutionService) ConfirmArriveStop(ctx context.Context, stopID uuid.UUID) error {
	stop, err := s.trips.GetStop(ctx, stopID)
	if err != nil {
		return fmt.Errorf("service.ExecutionService.ConfirmArriveStop: %w", err)
	}
	if stop.Completed() {
		return nil
	}

	if err := s.trips.ArriveStop(ctx, stopID, s.now().UTC()); err != nil {
		return fmt.Errorf("service.ExecutionService.ConfirmArriveStop: %w", err)
	}

	s.publish(ctx, "dispatch.stop.arrived", map[string]any{
		"trip_id": stop.TripID,
		"stop_id": stop.ID,
		"order":   stop.Order,
	})
	return nil
}

// ConfirmStartTrip moves a scheduled trip to on_going. It returns false when
// the trip exists but is not startable; only the scheduled -> on_going edge
// is accepted. The compare-and-set guards against a racing start from another
// session.
func (s *ExecutionService) ConfirmStartTrip(ctx context.Context, tripID uuid.UUID) (bool, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return false, fmt.Errorf("service.ExecutionService.ConfirmStartTrip: %w", err)
	}
	if trip.Status != domain.TripScheduled {
		return false, nil
	}

	ok, err := s.trips.SetStatus(ctx, tripID, domain.TripScheduled, domain.TripOnGoing)
	if err != nil {
		return false, fmt.Errorf("service.ExecutionService.ConfirmStartTrip: %w", err)
	}
	if !ok {
		// Lost the race: someone else changed the status between read and write.
		return false, nil
	}

	if s.metrics != nil {
		s.metrics.TripStartedInc()
	}
	s.publish(ctx, "dispatch.trip.started", map[string]any{
		"trip_id":   tripID,
		"driver_id": trip.DriverID,
	})
	return true, nil
}

// ConfirmEndTrip moves an on-going trip to completed. Ending an already
// completed trip is a no-op. The transition is refused while any stop still
// needs action, so a trip can never complete with passengers unaccounted for.
func (s *ExecutionService) ConfirmEndTrip(ctx context.Context, tripID uuid.UUID) error {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return fmt.Errorf("service.ExecutionService.ConfirmEndTrip: %w", err)
	}
	if trip.Status == domain.TripCompleted {
		return nil
	}
	if trip.Status != domain.TripOnGoing {
		return fmt.Errorf("service.ExecutionService.ConfirmEndTrip: %w: %s -> %s",
			domain.ErrIllegalTransition, trip.Status, domain.TripCompleted)
	}
	if engine.DeriveStatus(trip) != domain.TripCompleted {
		return fmt.Errorf("service.ExecutionService.ConfirmEndTrip: %w: stops still need action",
			domain.ErrIllegalTransition)
	}

	ok, err := s.trips.SetStatus(ctx, tripID, domain.TripOnGoing, domain.TripCompleted)
	if err != nil {
		return fmt.Errorf("service.ExecutionService.ConfirmEndTrip: %w", err)
	}
	if !ok {
		// Raced with another completion or a cancellation; reread decides.
		fresh, err := s.trips.GetByID(ctx, tripID)
		if err != nil {
			return fmt.Errorf("service.ExecutionService.ConfirmEndTrip: %w", err)
		}
		if fresh.Status == domain.TripCompleted {
			return nil
		}
		return fmt.Errorf("service.ExecutionService.ConfirmEndTrip: %w: %s -> %s",
			domain.ErrIllegalTransition, fresh.Status, domain.TripCompleted)
	}

	if s.metrics != nil {
		s.metrics.TripCompletedInc()
	}
	s.publish(ctx, "dispatch.trip.completed", map[string]any{
		"trip_id":   tripID,
		"driver_id": trip.DriverID,
	})
	return nil
}

// groupAt loads the fulfillment record for a booking at a stop and verifies
// the stop belongs to the trip and has the expected type. A type mismatch is
// an illegal transition: the action does not apply at this kind of stop.
func (s *ExecutionService) groupAt(ctx context.Context, tripID, stopID, bookingRequestID uuid.UUID, want domain.StopType) (domain.PassengerGroup, error) {
	stop, err := s.trips.GetStop(ctx, stopID)
	if err != nil {
		return domain.PassengerGroup{}, err
	}
	if stop.TripID != tripID {
		return domain.PassengerGroup{}, domain.ErrNotFound
	}
	if stop.Type != want {
		return domain.PassengerGroup{}, fmt.Errorf("%w: action not valid at a %s stop",
			domain.ErrIllegalTransition, stop.Type)
	}
	return s.trips.GetStopGroup(ctx, stopID, bookingRequestID)
}

// publish sends a domain event, logging and swallowing failures.
func (s *ExecutionService) publish(ctx context.Context, subject string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, subject, payload); err != nil {
		s.log.WarnContext(ctx, "event publish failed", "subject", subject, "error", err)
	}
}
