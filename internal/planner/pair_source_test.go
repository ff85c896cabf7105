package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denizztt/bincard-routes/internal/models"
)

// memoryLegCache is an in-process LegCache for tests
type memoryLegCache struct {
	legs map[[2]int64]models.Segment
}

func newMemoryLegCache() *memoryLegCache {
	return &memoryLegCache{legs: map[[2]int64]models.Segment{}}
}

func (m *memoryLegCache) GetLeg(_ context.Context, from, to int64) (*models.Segment, error) {
	seg, ok := m.legs[[2]int64{from, to}]
	if !ok {
		return nil, nil
	}
	return &seg, nil
}

func (m *memoryLegCache) SetLeg(_ context.Context, seg models.Segment) error {
	m.legs[[2]int64{seg.FromStationID, seg.ToStationID}] = seg
	return nil
}

func TestPairSource(t *testing.T) {
	ctx := context.Background()
	from := models.Station{ID: 1, Lat: 41.00, Lng: 28.97}
	to := models.Station{ID: 2, Lat: 41.02, Lng: 29.00}

	t.Run("Resolves a pair through the routing service", func(t *testing.T) {
		service := &fakeService{}
		seg, err := NewPairSource(service, nil).Segment(ctx, from, to)
		require.NoError(t, err)

		assert.False(t, seg.Degraded)
		require.NotNil(t, seg.DistanceKm)
		assert.InDelta(t, 1.5, *seg.DistanceKm, 1e-9)
	})

	t.Run("Serves repeats from the cache", func(t *testing.T) {
		service := &fakeService{}
		source := NewPairSource(service, newMemoryLegCache())

		_, err := source.Segment(ctx, from, to)
		require.NoError(t, err)
		_, err = source.Segment(ctx, from, to)
		require.NoError(t, err)

		assert.Len(t, service.requests, 1)
	})

	t.Run("Degrades to an estimate on service failure", func(t *testing.T) {
		service := &fakeService{failOrigin: 1}
		seg, err := NewPairSource(service, nil).Segment(ctx, from, to)
		require.NoError(t, err)

		assert.True(t, seg.Degraded)
		assert.Equal(t, FallbackNotes, seg.Notes)
	})

	t.Run("Degraded legs are not cached", func(t *testing.T) {
		service := &fakeService{failOrigin: 1}
		cache := newMemoryLegCache()
		source := NewPairSource(service, cache)

		_, err := source.Segment(ctx, from, to)
		require.NoError(t, err)

		assert.Empty(t, cache.legs)
	})
}
