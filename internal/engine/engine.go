package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fleetdesk/dispatch/internal/domain"
)

// TripAPI is the server-authoritative collaborator the engine drives.
// Every call is a blocking round-trip; the engine awaits each one before
// judging the next candidate stop and always refetches full trip state after
// a mutating call instead of trusting a local merge, because dispatcher and
// driver sessions can race.
type TripAPI interface {
	GetTrip(ctx context.Context, tripID uuid.UUID) (domain.Trip, error)
	ConfirmPickup(ctx context.Context, tripID, bookingRequestID, stopID uuid.UUID) error
	ConfirmDropOff(ctx context.Context, tripID, bookingRequestID, stopID uuid.UUID) error
	ConfirmAbsence(ctx context.Context, tripID, bookingRequestID uuid.UUID, reason string, stopID uuid.UUID) error
	ConfirmArriveStop(ctx context.Context, stopID uuid.UUID) error
	ConfirmStartTrip(ctx context.Context, tripID uuid.UUID) (bool, error)
	ConfirmEndTrip(ctx context.Context, tripID uuid.UUID) error
}

// Metrics is the subset of instrumentation the engine reports.
// A nil Metrics disables reporting.
type Metrics interface {
	ReconcileObserve(d time.Duration)
	StopAutoCompletedInc()
}

// Engine executes driver-initiated fulfillment actions and runs the
// auto-completion loop afterwards. Reconciliation passes for the same trip
// are serialized by a per-trip mutex: the loop's read-confirm-reread cycle
// is not safe to interleave with itself.
type Engine struct {
	api     TripAPI
	log     *slog.Logger
	metrics Metrics

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// New constructs an Engine. metrics may be nil.
func New(api TripAPI, log *slog.Logger, metrics Metrics) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		api:     api,
		log:     log,
		metrics: metrics,
		locks:   make(map[uuid.UUID]*sync.Mutex),
	}
}

// Pickup confirms that the group boarded at the given pickup stop, then runs
// the auto-completion pass and returns the refreshed view.
func (e *Engine) Pickup(ctx context.Context, tripID, bookingRequestID, stopID uuid.UUID) (domain.TripView, error) {
	unlock := e.lock(tripID)
	defer unlock()

	if err := e.api.ConfirmPickup(ctx, tripID, bookingRequestID, stopID); err != nil {
		return domain.TripView{}, fmt.Errorf("engine.Pickup: %w", err)
	}
	return e.settle(ctx, tripID)
}

// DropOff confirms that the group left the vehicle at the given drop-off
// stop, then runs the auto-completion pass and returns the refreshed view.
func (e *Engine) DropOff(ctx context.Context, tripID, bookingRequestID, stopID uuid.UUID) (domain.TripView, error) {
	unlock := e.lock(tripID)
	defer unlock()

	if err := e.api.ConfirmDropOff(ctx, tripID, bookingRequestID, stopID); err != nil {
		return domain.TripView{}, fmt.Errorf("engine.DropOff: %w", err)
	}
	return e.settle(ctx, tripID)
}

// Absence marks the group a no-show with the given reason, then runs the
// auto-completion pass and returns the refreshed view.
func (e *Engine) Absence(ctx context.Context, tripID, bookingRequestID uuid.UUID, reason string, stopID uuid.UUID) (domain.TripView, error) {
	unlock := e.lock(tripID)
	defer unlock()

	if err := e.api.ConfirmAbsence(ctx, tripID, bookingRequestID, reason, stopID); err != nil {
		return domain.TripView{}, fmt.Errorf("engine.Absence: %w", err)
	}
	return e.settle(ctx, tripID)
}

// Reconcile runs one auto-completion pass for the trip and returns the
// resulting view. Invoked on trip load and by the periodic refresh.
func (e *Engine) Reconcile(ctx context.Context, tripID uuid.UUID) (domain.TripView, error) {
	unlock := e.lock(tripID)
	defer unlock()

	return e.settle(ctx, tripID)
}

// settle runs the auto-completion loop and builds the view from whatever
// authoritative state is reachable. Loop failures are best-effort
// convenience, not a user-requested action: they are logged and the latest
// fetched state is served instead of an error.
func (e *Engine) settle(ctx context.Context, tripID uuid.UUID) (domain.TripView, error) {
	start := time.Now()
	trip, err := e.reconcile(ctx, tripID)
	if e.metrics != nil {
		e.metrics.ReconcileObserve(time.Since(start))
	}
	if err != nil {
		e.log.WarnContext(ctx, "auto-completion halted",
			"trip_id", tripID, "error", err)
		trip, err = e.api.GetTrip(ctx, tripID)
		if err != nil {
			return domain.TripView{}, fmt.Errorf("engine: refetch after halted pass: %w", err)
		}
	}
	return BuildView(trip)
}

// reconcile is the cascading look-ahead loop: find the next actionable stop,
// confirm arrival when every group present there is settled for that stop's
// direction, refetch, and repeat. The loop is bounded by the stop count and
// fails closed on any collaborator error: it never guesses forward past an
// unconfirmed stop. When no stop remains it confirms trip end exactly once.
func (e *Engine) reconcile(ctx context.Context, tripID uuid.UUID) (domain.Trip, error) {
	trip, err := e.api.GetTrip(ctx, tripID)
	if err != nil {
		return domain.Trip{}, err
	}
	if trip.Status != domain.TripOnGoing {
		// Scheduled trips are not advanced without an explicit start;
		// completed and cancelled trips are terminal.
		return trip, nil
	}

	maxPasses := len(trip.Stops) + 1
	for pass := 0; pass < maxPasses; pass++ {
		// The session may be torn down mid-loop; stop issuing calls.
		if err := ctx.Err(); err != nil {
			return trip, err
		}

		stops, err := SortStops(trip.Stops)
		if err != nil {
			return trip, err
		}

		next := NextActionableStop(stops)
		if next == nil {
			if err := e.api.ConfirmEndTrip(ctx, tripID); err != nil {
				return trip, err
			}
			e.log.InfoContext(ctx, "trip completed", "trip_id", tripID)
			return e.api.GetTrip(ctx, tripID)
		}

		resolved, err := ResolveGroups(stops, next)
		if err != nil {
			return trip, err
		}

		present := presentAt(*next, resolved)
		if len(present) == 0 {
			// No fulfillment data at the stop: wait for the driver.
			return trip, nil
		}
		for _, g := range present {
			if !g.Status.SettledAt(next.Type) {
				return trip, nil
			}
		}

		if err := e.api.ConfirmArriveStop(ctx, next.ID); err != nil {
			return trip, err
		}
		if e.metrics != nil {
			e.metrics.StopAutoCompletedInc()
		}
		e.log.InfoContext(ctx, "stop auto-completed",
			"trip_id", tripID, "stop_id", next.ID, "order", next.Order)

		trip, err = e.api.GetTrip(ctx, tripID)
		if err != nil {
			return trip, err
		}
	}

	return trip, fmt.Errorf("engine: auto-completion exceeded %d passes: %w", maxPasses, domain.ErrInvalidSequence)
}

// presentAt filters the resolved map down to bookings that appear at the stop.
func presentAt(stop domain.Stop, resolved map[uuid.UUID]domain.PassengerGroup) []domain.PassengerGroup {
	var out []domain.PassengerGroup
	for id, g := range resolved {
		if stop.HasBooking(id) {
			out = append(out, g)
		}
	}
	return out
}

// BuildView assembles the read model for a trip: stops sorted by order,
// canonical per-booking fulfillment records, and the next actionable stop.
func BuildView(trip domain.Trip) (domain.TripView, error) {
	stops, err := SortStops(trip.Stops)
	if err != nil {
		return domain.TripView{}, err
	}
	next := NextActionableStop(stops)

	resolved, err := ResolveGroups(stops, next)
	if err != nil {
		return domain.TripView{}, err
	}

	trip.Stops = stops
	view := domain.TripView{Trip: trip, Groups: resolved}
	if next != nil {
		id := next.ID
		view.NextStopID = &id
	}
	return view, nil
}

// lock serializes access per trip and returns the unlock function.
func (e *Engine) lock(tripID uuid.UUID) func() {
	e.mu.Lock()
	m, ok := e.locks[tripID]
	if !ok {
		m = &sync.Mutex{}
		e.locks[tripID] = m
	}
	e.mu.Unlock()

	m.Lock()
	return m.Unlock
}
