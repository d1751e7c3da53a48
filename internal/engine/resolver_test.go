package engine_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetdesk/dispatch/internal/domain"
	"github.com/fleetdesk/dispatch/internal/engine"
)

func TestResolveGroups_SeedsOneRecordPerBooking(t *testing.T) {
	bookingA, bookingB := uuid.New(), uuid.New()
	pickup := domain.Stop{
		ID: uuid.New(), Order: 1, Type: domain.StopPickup,
		Groups: []domain.PassengerGroup{
			{BookingRequestID: bookingA, Status: domain.GroupPending, PassengerCount: 2},
			{BookingRequestID: bookingB, Status: domain.GroupPickedUp, PassengerCount: 1},
		},
	}

	resolved, err := engine.ResolveGroups([]domain.Stop{pickup}, &pickup)

	require.NoError(t, err)
	require.Len(t, resolved, 2)
	assert.Equal(t, domain.GroupPending, resolved[bookingA].Status)
	assert.Equal(t, domain.GroupPickedUp, resolved[bookingB].Status)
	assert.Equal(t, pickup.ID, resolved[bookingA].StopID)
}

func TestResolveGroups_MissingBookingIDIsDataError(t *testing.T) {
	stop := domain.Stop{
		ID: uuid.New(), Order: 1, Type: domain.StopPickup,
		Groups: []domain.PassengerGroup{{Status: domain.GroupPending}},
	}

	_, err := engine.ResolveGroups([]domain.Stop{stop}, &stop)

	assert.ErrorIs(t, err, domain.ErrInvalidSequence)
}

func TestResolveGroups_TicketFallbackDeduplicatesPassengers(t *testing.T) {
	booking := uuid.New()
	passenger := uuid.New()
	stop := domain.Stop{
		ID: uuid.New(), Order: 1, Type: domain.StopPickup,
		Tickets: []domain.Ticket{
			{ID: uuid.New(), BookingRequestID: booking, PassengerID: passenger, PassengerName: "Ana Roy"},
			{ID: uuid.New(), BookingRequestID: booking, PassengerID: passenger, PassengerName: "Ana Roy"},
			{ID: uuid.New(), BookingRequestID: booking, PassengerID: uuid.New(), PassengerName: "Ben Roy"},
		},
	}

	resolved, err := engine.ResolveGroups([]domain.Stop{stop}, &stop)

	require.NoError(t, err)
	require.Len(t, resolved, 1)
	g := resolved[booking]
	assert.Equal(t, 2, g.PassengerCount)
	assert.Equal(t, domain.GroupPending, g.Status)
	assert.Equal(t, "Ana Roy", g.ContactName)
}

func TestResolveGroups_TicketMissingBookingIDIsDataError(t *testing.T) {
	stop := domain.Stop{
		ID: uuid.New(), Order: 1, Type: domain.StopPickup,
		Tickets: []domain.Ticket{{ID: uuid.New(), PassengerID: uuid.New()}},
	}

	_, err := engine.ResolveGroups([]domain.Stop{stop}, nil)

	assert.ErrorIs(t, err, domain.ErrInvalidSequence)
}

func TestResolveGroups_PromotesPickedUpAtItsDropOff(t *testing.T) {
	booking := uuid.New()
	pickup := domain.Stop{
		ID: uuid.New(), Order: 1, Type: domain.StopPickup,
		Groups: []domain.PassengerGroup{{BookingRequestID: booking, Status: domain.GroupPickedUp}},
	}
	dropOff := domain.Stop{
		ID: uuid.New(), Order: 2, Type: domain.StopDropOff,
		Groups: []domain.PassengerGroup{{BookingRequestID: booking, Status: domain.GroupPickedUp}},
	}

	resolved, err := engine.ResolveGroups([]domain.Stop{pickup, dropOff}, &dropOff)

	require.NoError(t, err)
	assert.Equal(t, domain.GroupDroppingOff, resolved[booking].Status)
}

func TestResolveGroups_SecondPassCatchesEarlierPickup(t *testing.T) {
	// The drop-off stop carries the booking only as a legacy ticket, so the
	// first pass never sees a group record at the next stop. The second pass
	// must still promote the booking picked up earlier.
	booking := uuid.New()
	pickup := domain.Stop{
		ID: uuid.New(), Order: 1, Type: domain.StopPickup,
		Groups: []domain.PassengerGroup{{BookingRequestID: booking, Status: domain.GroupPickedUp}},
	}
	dropOff := domain.Stop{
		ID: uuid.New(), Order: 2, Type: domain.StopDropOff,
		Tickets: []domain.Ticket{{ID: uuid.New(), BookingRequestID: booking, PassengerID: uuid.New()}},
	}

	resolved, err := engine.ResolveGroups([]domain.Stop{pickup, dropOff}, &dropOff)

	require.NoError(t, err)
	assert.Equal(t, domain.GroupDroppingOff, resolved[booking].Status)
}

func TestResolveGroups_PendingIsNeverPromoted(t *testing.T) {
	booking := uuid.New()
	dropOff := domain.Stop{
		ID: uuid.New(), Order: 1, Type: domain.StopDropOff,
		Groups: []domain.PassengerGroup{{BookingRequestID: booking, Status: domain.GroupPending}},
	}

	resolved, err := engine.ResolveGroups([]domain.Stop{dropOff}, &dropOff)

	require.NoError(t, err)
	assert.Equal(t, domain.GroupPending, resolved[booking].Status)
}

func TestResolveGroups_NoPromotionAtPickupStop(t *testing.T) {
	booking := uuid.New()
	pickup := domain.Stop{
		ID: uuid.New(), Order: 1, Type: domain.StopPickup,
		Groups: []domain.PassengerGroup{{BookingRequestID: booking, Status: domain.GroupPickedUp}},
	}

	resolved, err := engine.ResolveGroups([]domain.Stop{pickup}, &pickup)

	require.NoError(t, err)
	assert.Equal(t, domain.GroupPickedUp, resolved[booking].Status)
}
