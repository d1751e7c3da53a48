package engine_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetdesk/dispatch/internal/domain"
	"github.com/fleetdesk/dispatch/internal/engine"
)

func ts(h int) time.Time {
	return time.Date(2025, 1, 1, h, 0, 0, 0, time.UTC)
}

func TestSortStops_OrdersAscending(t *testing.T) {
	stops := []domain.Stop{
		{ID: uuid.New(), Order: 3},
		{ID: uuid.New(), Order: 1},
		{ID: uuid.New(), Order: 2},
	}

	sorted, err := engine.SortStops(stops)

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, []int{sorted[0].Order, sorted[1].Order, sorted[2].Order})
	// input slice untouched
	assert.Equal(t, 3, stops[0].Order)
}

func TestSortStops_DuplicateOrderIsDataError(t *testing.T) {
	stops := []domain.Stop{
		{ID: uuid.New(), Order: 1},
		{ID: uuid.New(), Order: 1},
	}

	_, err := engine.SortStops(stops)

	assert.ErrorIs(t, err, domain.ErrInvalidSequence)
}

func TestNextActionableStop_ReturnsFirstIncomplete(t *testing.T) {
	arrived := ts(8)
	stops := []domain.Stop{
		{ID: uuid.New(), Order: 1, ActualArrivalTime: &arrived},
		{ID: uuid.New(), Order: 2},
		{ID: uuid.New(), Order: 3},
	}

	next := engine.NextActionableStop(stops)

	require.NotNil(t, next)
	assert.Equal(t, 2, next.Order)
}

func TestNextActionableStop_NilWhenAllComplete(t *testing.T) {
	arrived := ts(8)
	stops := []domain.Stop{
		{ID: uuid.New(), Order: 1, ActualArrivalTime: &arrived},
		{ID: uuid.New(), Order: 2, ActualArrivalTime: &arrived},
	}

	assert.Nil(t, engine.NextActionableStop(stops))
}

func TestNextActionableStop_NilForEmptyList(t *testing.T) {
	assert.Nil(t, engine.NextActionableStop(nil))
}
