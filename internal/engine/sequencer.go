// Package engine implements trip execution: passenger group resolution, stop
// sequencing, driver-initiated fulfillment actions, and the auto-completion
// loop that advances past stops needing no further human action.
//
// The derivation functions in this package are pure and perform no I/O; all
// server calls go through the TripAPI collaborator interface so the engine can
// be unit-tested with mocks.
package engine

import (
	"fmt"
	"sort"

	"github.com/fleetdesk/dispatch/internal/domain"
)

// SortStops returns a copy of stops sorted by Order ascending.
// Duplicate order values within the slice are a data error and are surfaced
// as domain.ErrInvalidSequence, never silently resolved.
func SortStops(stops []domain.Stop) ([]domain.Stop, error) {
	out := make([]domain.Stop, len(stops))
	copy(out, stops)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })

	for i := 1; i < len(out); i++ {
		if out[i].Order == out[i-1].Order {
			return nil, fmt.Errorf("engine.SortStops: duplicate stop order %d: %w", out[i].Order, domain.ErrInvalidSequence)
		}
	}
	return out, nil
}

// NextActionableStop returns the first stop (in slice order) whose arrival has
// not been confirmed, or nil when every stop is complete. A nil result signals
// trip completion to the caller.
//
// The caller must pass stops already sorted by Order ascending (see SortStops).
func NextActionableStop(stops []domain.Stop) *domain.Stop {
	for i := range stops {
		if !stops[i].Completed() {
			return &stops[i]
		}
	}
	return nil
}
