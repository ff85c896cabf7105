package planner

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denizztt/bincard-routes/internal/models"
	"github.com/denizztt/bincard-routes/internal/route"
)

// fakeService scripts routing responses per chunk and records requests.
// Chunks requested with failOrigin as their origin get a non-OK status.
type fakeService struct {
	mu         sync.Mutex
	requests   [][]int64
	failOrigin int64
	status     Status
	jitter     bool // randomize completion order
}

func (f *fakeService) Route(ctx context.Context, origin, destination models.Station, waypoints []models.Station, optimizeWaypoints bool) (*RouteResponse, error) {
	if optimizeWaypoints {
		return nil, fmt.Errorf("waypoint optimization must stay disabled")
	}

	ids := []int64{origin.ID}
	for _, w := range waypoints {
		ids = append(ids, w.ID)
	}
	ids = append(ids, destination.ID)

	f.mu.Lock()
	f.requests = append(f.requests, ids)
	f.mu.Unlock()

	if f.jitter {
		time.Sleep(time.Duration(rand.Intn(20)) * time.Millisecond)
	}

	if f.failOrigin != 0 && origin.ID == f.failOrigin {
		status := f.status
		if status == "" {
			status = StatusZeroResults
		}
		return &RouteResponse{Status: status}, nil
	}

	legs := make([]Leg, len(ids)-1)
	for i := range legs {
		legs[i] = Leg{DistanceKm: 1.5, DurationMinutes: 3}
	}
	return &RouteResponse{Status: StatusOK, Legs: legs}, nil
}

func planStations(n int) []models.Station {
	stations := make([]models.Station, n)
	for i := range stations {
		stations[i] = models.Station{
			ID:  int64(i + 1),
			Lat: 41.0 + float64(i)*0.005,
			Lng: 29.0 + float64(i)*0.003,
		}
	}
	return stations
}

func TestPlanSingleChunk(t *testing.T) {
	service := &fakeService{}
	result, err := NewPlanner(service).Plan(context.Background(), planStations(10))
	require.NoError(t, err)

	assert.Len(t, service.requests, 1)
	assert.Len(t, result.Path.Segments(), 9)
	assert.True(t, result.Complete)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, models.PathConnected, result.Path.State())
}

func TestPlanSplitsLongSequences(t *testing.T) {
	service := &fakeService{jitter: true}
	stations := planStations(30)

	result, err := NewPlanner(service).Plan(context.Background(), stations)
	require.NoError(t, err)

	t.Run("30 stations need at least 2 chunks", func(t *testing.T) {
		assert.GreaterOrEqual(t, len(service.requests), 2)
	})

	t.Run("All 29 segments are present in original order", func(t *testing.T) {
		segments := result.Path.Segments()
		require.Len(t, segments, 29)
		for i, seg := range segments {
			assert.Equal(t, int64(i+1), seg.FromStationID)
			assert.Equal(t, int64(i+2), seg.ToStationID)
		}
	})

	t.Run("Consecutive chunks share their boundary station", func(t *testing.T) {
		// Completion order is not deterministic; identify chunks by origin.
		byOrigin := map[int64][]int64{}
		for _, req := range service.requests {
			byOrigin[req[0]] = req
		}
		first, ok := byOrigin[1]
		require.True(t, ok)
		second, ok := byOrigin[25]
		require.True(t, ok)
		assert.Equal(t, int64(25), first[len(first)-1])
		assert.Equal(t, int64(30), second[len(second)-1])
	})
}

func TestPlanDegradesFailedChunk(t *testing.T) {
	service := &fakeService{failOrigin: 1}
	stations := planStations(30)

	result, err := NewPlanner(service).Plan(context.Background(), stations)
	require.NoError(t, err)

	segments := result.Path.Segments()
	require.Len(t, segments, 29)

	t.Run("Failed chunk segments are straight-line estimates", func(t *testing.T) {
		for _, seg := range segments[:24] {
			assert.True(t, seg.Degraded)
			assert.Equal(t, FallbackNotes, seg.Notes)
			assert.NotNil(t, seg.DistanceKm)
		}
	})

	t.Run("Healthy chunk segments keep service metrics", func(t *testing.T) {
		for _, seg := range segments[24:] {
			assert.False(t, seg.Degraded)
			require.NotNil(t, seg.DistanceKm)
			assert.InDelta(t, 1.5, *seg.DistanceKm, 1e-9)
		}
	})

	t.Run("Plan still completes with a degraded path state", func(t *testing.T) {
		assert.True(t, result.Complete)
		assert.Equal(t, models.PathDegraded, result.Path.State())
	})
}

func TestPlanQuotaErrorNeverAborts(t *testing.T) {
	service := &fakeService{failOrigin: 1, status: StatusOverQueryLimit}
	result, err := NewPlanner(service).Plan(context.Background(), planStations(5))
	require.NoError(t, err)

	assert.Len(t, result.Path.Segments(), 4)
	assert.Equal(t, models.PathDegraded, result.Path.State())
}

func TestPlanRequiresTwoStations(t *testing.T) {
	_, err := NewPlanner(&fakeService{}).Plan(context.Background(), planStations(1))
	assert.ErrorIs(t, err, route.ErrInsufficientStations)
}

func TestPlanCancelledContextDiscardsResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := NewPlanner(&fakeService{}).Plan(ctx, planStations(4))
	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestChunkStations(t *testing.T) {
	tests := []struct {
		name       string
		stations   int
		chunks     int
		totalPairs int
	}{
		{"Minimal path", 2, 1, 1},
		{"Exactly one chunk", 25, 1, 24},
		{"One station over", 26, 2, 25},
		{"Two full chunks", 49, 2, 48},
		{"Three chunks", 50, 3, 49},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := chunkStations(planStations(tt.stations))
			assert.Len(t, chunks, tt.chunks)

			pairs := 0
			for _, chunk := range chunks {
				assert.LessOrEqual(t, len(chunk), maxChunkStations)
				pairs += len(chunk) - 1
			}
			assert.Equal(t, tt.totalPairs, pairs)
		})
	}
}

func TestRouteChunkOverCapacity(t *testing.T) {
	service := &fakeService{}
	p := NewPlanner(service)

	// Force an oversized chunk directly; the head is routed, the remainder
	// falls back pair by pair, nothing is dropped.
	chunk := planStations(30)
	segments, warnings := p.routeChunk(context.Background(), "test", chunk)

	require.Len(t, segments, 29)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], WarnWaypointLimit)

	for _, seg := range segments[:24] {
		assert.False(t, seg.Degraded)
	}
	for _, seg := range segments[24:] {
		assert.True(t, seg.Degraded)
	}
}
