package planner

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/denizztt/bincard-routes/internal/models"
	"github.com/denizztt/bincard-routes/internal/route"
)

// Routing service status values. Any non-OK status degrades the affected
// chunk to straight-line estimates; it never aborts the plan.
type Status string

const (
	StatusOK                   Status = "OK"
	StatusZeroResults          Status = "ZERO_RESULTS"
	StatusMaxWaypointsExceeded Status = "MAX_WAYPOINTS_EXCEEDED"
	StatusOverQueryLimit       Status = "OVER_QUERY_LIMIT"
	StatusRequestDenied        Status = "REQUEST_DENIED"
	StatusInvalidRequest       Status = "INVALID_REQUEST"
	StatusUnknownError         Status = "UNKNOWN_ERROR"
)

// Leg is one origin-to-next-waypoint result from the routing service
type Leg struct {
	DistanceKm      float64 `json:"distance_km"`
	DurationMinutes int     `json:"duration_minutes"`
}

// RouteResponse is the routing service result for one chunk request
type RouteResponse struct {
	Status Status `json:"status"`
	Legs   []Leg  `json:"legs"`
}

// RoutingService is the external directions collaborator. Waypoint order is
// always preserved (optimizeWaypoints false): the input order encodes the
// user's explicit sequencing.
type RoutingService interface {
	Route(ctx context.Context, origin, destination models.Station, waypoints []models.Station, optimizeWaypoints bool) (*RouteResponse, error)
}

const (
	// maxInteriorWaypoints is the routing service's per-request waypoint
	// limit; a chunk holds at most maxChunkStations stations including the
	// boundary station shared with the next chunk.
	maxInteriorWaypoints = 23
	maxChunkStations     = maxInteriorWaypoints + 2
)

// WarnWaypointLimit prefixes warnings about chunks over the waypoint limit
const WarnWaypointLimit = "waypoint limit exceeded"

// PlanResult carries the assembled path and its quality signal. A plan never
// fully fails on routing-service errors; degraded chunks surface here as
// warnings and degraded segments.
type PlanResult struct {
	Path     *route.DirectionalPath
	Warnings []string
	Complete bool
}

// Planner turns an ordered station selection into a directional path,
// chunking requests to the routing service's waypoint limit and stitching
// per-leg results back together in input order.
type Planner struct {
	service  RoutingService
	fallback FallbackRouter
}

// NewPlanner creates a planner backed by the given routing service
func NewPlanner(service RoutingService) *Planner {
	return &Planner{service: service}
}

// Plan routes the ordered stations. Chunk requests run concurrently; segment
// assembly happens only after every chunk outcome is known, in original
// station order regardless of completion order. Cancelling ctx discards all
// in-flight results.
func (p *Planner) Plan(ctx context.Context, stations []models.Station) (*PlanResult, error) {
	if len(stations) < 2 {
		return nil, fmt.Errorf("%w: got %d", route.ErrInsufficientStations, len(stations))
	}

	planID := uuid.NewString()[:8]
	chunks := chunkStations(stations)

	type chunkOutcome struct {
		segments []models.Segment
		warnings []string
	}

	outcomes := make([]chunkOutcome, len(chunks))
	var wg sync.WaitGroup

	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk []models.Station) {
			defer wg.Done()
			segments, warnings := p.routeChunk(ctx, planID, chunk)
			outcomes[i] = chunkOutcome{segments: segments, warnings: warnings}
		}(i, chunk)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var segments []models.Segment
	var warnings []string
	for _, o := range outcomes {
		segments = append(segments, o.segments...)
		warnings = append(warnings, o.warnings...)
	}

	path := route.NewDirectionalPath()
	if err := path.RebuildFrom(ctx, stations, route.NewSegmentList(segments)); err != nil {
		return nil, fmt.Errorf("assemble path: %w", err)
	}

	return &PlanResult{
		Path:     path,
		Warnings: warnings,
		Complete: path.RecomputeAggregates().IsComplete,
	}, nil
}

// routeChunk issues one routing request for a chunk and maps the returned
// legs 1:1 onto the chunk's consecutive station pairs. Any failure degrades
// the whole chunk to straight-line estimates.
func (p *Planner) routeChunk(ctx context.Context, planID string, chunk []models.Station) ([]models.Segment, []string) {
	var warnings []string

	// A chunk over capacity routes its head and estimates the remainder pair
	// by pair; nothing is silently dropped.
	if len(chunk) > maxChunkStations {
		warnings = append(warnings, fmt.Sprintf("%s: chunk of %d stations truncated to %d", WarnWaypointLimit, len(chunk), maxChunkStations))
		head, headWarnings := p.routeChunk(ctx, planID, chunk[:maxChunkStations])
		tail := p.fallback.Estimate(chunk[maxChunkStations-1:])
		return append(head, tail...), append(warnings, headWarnings...)
	}

	origin := chunk[0]
	destination := chunk[len(chunk)-1]
	waypoints := chunk[1 : len(chunk)-1]

	resp, err := p.service.Route(ctx, origin, destination, waypoints, false)
	if err != nil {
		log.Printf("plan %s: routing request %d -> %d failed: %v, using straight-line estimate", planID, origin.ID, destination.ID, err)
		return p.fallback.Estimate(chunk), warnings
	}
	if resp.Status != StatusOK {
		log.Printf("plan %s: routing status %s for %d -> %d, using straight-line estimate", planID, resp.Status, origin.ID, destination.ID)
		return p.fallback.Estimate(chunk), warnings
	}
	if len(resp.Legs) != len(chunk)-1 {
		log.Printf("plan %s: expected %d legs, got %d, using straight-line estimate", planID, len(chunk)-1, len(resp.Legs))
		return p.fallback.Estimate(chunk), warnings
	}

	segments := make([]models.Segment, 0, len(resp.Legs))
	for i, leg := range resp.Legs {
		distance := leg.DistanceKm
		minutes := leg.DurationMinutes
		segments = append(segments, models.Segment{
			FromStationID:     chunk[i].ID,
			ToStationID:       chunk[i+1].ID,
			DistanceKm:        &distance,
			TravelTimeMinutes: &minutes,
		})
	}
	return segments, warnings
}

// chunkStations partitions the sequence into chunks of at most
// maxChunkStations, consecutive chunks sharing their boundary station so
// every station pair belongs to exactly one chunk.
func chunkStations(stations []models.Station) [][]models.Station {
	var chunks [][]models.Station
	for start := 0; start < len(stations)-1; start += maxChunkStations - 1 {
		end := start + maxChunkStations
		if end > len(stations) {
			end = len(stations)
		}
		chunks = append(chunks, stations[start:end])
	}
	return chunks
}
