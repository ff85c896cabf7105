package route

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denizztt/bincard-routes/internal/models"
)

func testSpec() Spec {
	return Spec{
		Name:  "Kadıköy - Taksim",
		Code:  "110",
		Color: "#E30613",
		Type:  models.TypeCityBus,
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("Builds outgoing path and declares endpoints", func(t *testing.T) {
		g, err := Create(ctx, testSpec(), testStations(1, 2, 3), nil, newStubSource())
		require.NoError(t, err)

		assert.Equal(t, int64(1), g.StartStationID())
		assert.Equal(t, int64(3), g.EndStationID())
		assert.Equal(t, []int64{1, 2, 3}, g.Outgoing().StationSequence())
		assert.Nil(t, g.Return())
	})

	t.Run("Single station fails with insufficient stations", func(t *testing.T) {
		_, err := Create(ctx, testSpec(), testStations(1), nil, newStubSource())
		assert.ErrorIs(t, err, ErrInsufficientStations)
	})

	t.Run("Return direction must run end to start", func(t *testing.T) {
		g, err := Create(ctx, testSpec(), testStations(1, 2, 3), testStations(3, 2, 1), newStubSource())
		require.NoError(t, err)
		require.NotNil(t, g.Return())
		assert.Equal(t, []int64{3, 2, 1}, g.Return().StationSequence())
	})

	t.Run("Return starting elsewhere fails with direction reversal", func(t *testing.T) {
		_, err := Create(ctx, testSpec(), testStations(1, 2, 3), testStations(2, 1), newStubSource())
		assert.ErrorIs(t, err, ErrDirectionReversal)
	})

	t.Run("Return ending elsewhere fails with direction reversal", func(t *testing.T) {
		_, err := Create(ctx, testSpec(), testStations(1, 2, 3), testStations(3, 2), newStubSource())
		assert.ErrorIs(t, err, ErrDirectionReversal)
	})

	t.Run("Unknown route type is rejected", func(t *testing.T) {
		spec := testSpec()
		spec.Type = "ZEPPELIN"
		_, err := Create(ctx, spec, testStations(1, 2), nil, newStubSource())
		assert.Error(t, err)
	})
}

func TestAddStationToDirection(t *testing.T) {
	ctx := context.Background()

	t.Run("Inserts between stations and yields three segments", func(t *testing.T) {
		g, err := Create(ctx, testSpec(), testStations(1, 2, 3), nil, newStubSource())
		require.NoError(t, err)

		err = g.AddStationToDirection(ctx, models.DirectionOutgoing, 2, testStations(4)[0], newStubSource())
		require.NoError(t, err)

		assert.Equal(t, []int64{1, 2, 4, 3}, g.Outgoing().StationSequence())
		assert.Len(t, g.Outgoing().Segments(), 3)
	})

	t.Run("Repeat insert fails with duplicate station", func(t *testing.T) {
		g, err := Create(ctx, testSpec(), testStations(1, 2, 3), nil, newStubSource())
		require.NoError(t, err)

		require.NoError(t, g.AddStationToDirection(ctx, models.DirectionOutgoing, 2, testStations(4)[0], newStubSource()))
		err = g.AddStationToDirection(ctx, models.DirectionOutgoing, 2, testStations(4)[0], newStubSource())
		assert.ErrorIs(t, err, ErrDuplicateStation)
	})

	t.Run("Does not touch the other direction", func(t *testing.T) {
		g, err := Create(ctx, testSpec(), testStations(1, 2, 3), testStations(3, 2, 1), newStubSource())
		require.NoError(t, err)

		require.NoError(t, g.AddStationToDirection(ctx, models.DirectionOutgoing, 2, testStations(4)[0], newStubSource()))
		assert.Equal(t, []int64{3, 2, 1}, g.Return().StationSequence())
	})

	t.Run("Inserting after the terminal station is rejected", func(t *testing.T) {
		g, err := Create(ctx, testSpec(), testStations(1, 2, 3), nil, newStubSource())
		require.NoError(t, err)

		err = g.AddStationToDirection(ctx, models.DirectionOutgoing, 3, testStations(4)[0], newStubSource())
		assert.ErrorIs(t, err, ErrProtectedEndpoint)
		assert.Equal(t, []int64{1, 2, 3}, g.Outgoing().StationSequence())
	})

	t.Run("Return direction absent fails", func(t *testing.T) {
		g, err := Create(ctx, testSpec(), testStations(1, 2, 3), nil, newStubSource())
		require.NoError(t, err)

		err = g.AddStationToDirection(ctx, models.DirectionReturn, 3, testStations(4)[0], newStubSource())
		assert.ErrorIs(t, err, ErrInvalidPath)
	})

	t.Run("Unknown direction fails", func(t *testing.T) {
		g, err := Create(ctx, testSpec(), testStations(1, 2, 3), nil, newStubSource())
		require.NoError(t, err)

		err = g.AddStationToDirection(ctx, "SIDEWAYS", 2, testStations(4)[0], newStubSource())
		assert.ErrorIs(t, err, ErrUnknownDirection)
	})
}

func TestRemoveStationFromDirection(t *testing.T) {
	ctx := context.Background()

	t.Run("Removes interior station from return only", func(t *testing.T) {
		g, err := Create(ctx, testSpec(), testStations(1, 2, 3), testStations(3, 2, 1), newStubSource())
		require.NoError(t, err)

		require.NoError(t, g.RemoveStationFromDirection(ctx, models.DirectionReturn, 2, newStubSource()))
		assert.Equal(t, []int64{3, 1}, g.Return().StationSequence())
		assert.Equal(t, []int64{1, 2, 3}, g.Outgoing().StationSequence())
	})

	t.Run("Endpoint removal is rejected", func(t *testing.T) {
		g, err := Create(ctx, testSpec(), testStations(1, 2, 3), nil, newStubSource())
		require.NoError(t, err)

		err = g.RemoveStationFromDirection(ctx, models.DirectionOutgoing, 1, newStubSource())
		assert.ErrorIs(t, err, ErrProtectedEndpoint)
	})
}

func TestScheduleSlots(t *testing.T) {
	ctx := context.Background()
	g, err := Create(ctx, testSpec(), testStations(1, 2), nil, newStubSource())
	require.NoError(t, err)

	t.Run("Fresh route is not schedulable", func(t *testing.T) {
		assert.False(t, g.Schedulable())
	})

	t.Run("Valid slots are stored sorted and deduplicated", func(t *testing.T) {
		require.NoError(t, g.ScheduleSlots([]string{"08:15", "06:30", "08:15"}, []string{"09:00"}))

		assert.Equal(t, []string{"06:30", "08:15"}, g.WeekdaySlots())
		assert.Equal(t, []string{"09:00"}, g.WeekendSlots())
		assert.True(t, g.Schedulable())
	})

	t.Run("Slot outside catalogue is rejected atomically", func(t *testing.T) {
		err := g.ScheduleSlots([]string{"06:00", "06:07"}, nil)
		assert.ErrorIs(t, err, ErrInvalidSlot)
		// Prior sets survive the failed replace.
		assert.Equal(t, []string{"06:30", "08:15"}, g.WeekdaySlots())
	})
}

func TestToPersistablePayload(t *testing.T) {
	ctx := context.Background()
	g, err := Create(ctx, testSpec(), testStations(1, 2, 3), testStations(3, 2, 1), newStubSource())
	require.NoError(t, err)
	require.NoError(t, g.ScheduleSlots([]string{"07:00"}, []string{"10:30"}))

	payload := g.ToPersistablePayload()

	assert.NotEmpty(t, payload.IdempotencyKey)
	assert.Equal(t, "110", payload.Code)
	assert.Equal(t, models.TypeCityBus, payload.Type)
	assert.Equal(t, int64(1), payload.StartStationID)
	assert.Equal(t, int64(3), payload.EndStationID)
	assert.Len(t, payload.OutgoingSegments, 2)
	assert.Len(t, payload.ReturnSegments, 2)
	assert.Equal(t, []string{"07:00"}, payload.WeekdaySlots)
	assert.Equal(t, []string{"10:30"}, payload.WeekendSlots)

	// Route totals follow the outgoing direction: 0.3 + 0.5 km, 3 + 5 min.
	assert.InDelta(t, 0.8, payload.TotalDistanceKm, 1e-9)
	assert.Equal(t, 8, payload.TotalDurationMin)

	first := payload.OutgoingSegments[0]
	assert.Equal(t, int64(1), first.FromStationID)
	assert.Equal(t, int64(2), first.ToStationID)
	require.NotNil(t, first.DistanceKm)
	assert.InDelta(t, 0.3, *first.DistanceKm, 1e-9)
}

func TestToPersistablePayloadCarriesDegradedFlag(t *testing.T) {
	ctx := context.Background()

	// Degradation and notes vary independently: an annotated segment may be
	// fully resolved, an estimated one may carry no notes.
	segments := []models.Segment{
		{FromStationID: 1, ToStationID: 2, DistanceKm: ptrF(2.0), TravelTimeMinutes: ptrI(4), Notes: "Köprü geçişi"},
		{FromStationID: 2, ToStationID: 3, DistanceKm: ptrF(1.0), TravelTimeMinutes: ptrI(2), Degraded: true},
	}
	g, err := Create(ctx, testSpec(), testStations(1, 2, 3), nil, NewSegmentList(segments))
	require.NoError(t, err)

	payload := g.ToPersistablePayload()
	require.Len(t, payload.OutgoingSegments, 2)
	assert.False(t, payload.OutgoingSegments[0].Degraded)
	assert.True(t, payload.OutgoingSegments[1].Degraded)

	t.Run("Flag stays off the wire shape", func(t *testing.T) {
		raw, err := json.Marshal(payload.OutgoingSegments[1])
		require.NoError(t, err)
		assert.NotContains(t, string(raw), "degraded")
	})
}
