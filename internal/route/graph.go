package route

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/denizztt/bincard-routes/internal/models"
	"github.com/denizztt/bincard-routes/internal/schedule"
)

// Spec carries the scalar route fields supplied at creation
type Spec struct {
	Name        string
	Code        string
	Description string
	Color       string
	Type        models.RouteType
}

// RouteGraph is a named route owning an outgoing and optional return
// directional path. Both paths share the same station universe; the outgoing
// path begins at the declared start station and ends at the declared end
// station, and the return path (when present) runs end to start.
type RouteGraph struct {
	spec           Spec
	startStationID int64
	endStationID   int64
	outgoing       *DirectionalPath
	ret            *DirectionalPath
	weekdaySlots   map[string]bool
	weekendSlots   map[string]bool
}

// Create validates the station sequences and builds the route graph. The
// outgoing direction requires at least 2 stations; a supplied return
// direction must begin at the outgoing end station and finish at the
// outgoing start station.
func Create(ctx context.Context, spec Spec, outgoing []models.Station, ret []models.Station, source SegmentSource) (*RouteGraph, error) {
	if !models.ValidRouteType(spec.Type) {
		return nil, fmt.Errorf("unknown route type %q", spec.Type)
	}
	if len(outgoing) < 2 {
		return nil, fmt.Errorf("%w: outgoing has %d", ErrInsufficientStations, len(outgoing))
	}

	g := &RouteGraph{
		spec:           spec,
		startStationID: outgoing[0].ID,
		endStationID:   outgoing[len(outgoing)-1].ID,
		outgoing:       NewDirectionalPath(),
		weekdaySlots:   map[string]bool{},
		weekendSlots:   map[string]bool{},
	}

	if len(ret) > 0 {
		if len(ret) < 2 {
			return nil, fmt.Errorf("%w: return has %d", ErrInsufficientStations, len(ret))
		}
		if ret[0].ID != g.endStationID || ret[len(ret)-1].ID != g.startStationID {
			return nil, fmt.Errorf("%w: return runs %d -> %d, expected %d -> %d",
				ErrDirectionReversal, ret[0].ID, ret[len(ret)-1].ID, g.endStationID, g.startStationID)
		}
	}

	if err := g.outgoing.RebuildFrom(ctx, outgoing, source); err != nil {
		return nil, fmt.Errorf("build outgoing path: %w", err)
	}

	if len(ret) > 0 {
		g.ret = NewDirectionalPath()
		if err := g.ret.RebuildFrom(ctx, ret, source); err != nil {
			return nil, fmt.Errorf("build return path: %w", err)
		}
	}

	return g, nil
}

// AddStationToDirection inserts a station into one direction, leaving the
// other direction untouched. Inserting after the terminal station is
// rejected: that would move the route's declared endpoint, which must go
// through a route-level edit instead.
func (g *RouteGraph) AddStationToDirection(ctx context.Context, dir models.Direction, afterStationID int64, newStation models.Station, source SegmentSource) error {
	path, err := g.path(dir)
	if err != nil {
		return err
	}

	if last, ok := path.Last(); ok && last.ID == afterStationID {
		return fmt.Errorf("%w: station %d terminates the %s direction", ErrProtectedEndpoint, afterStationID, dir)
	}

	return path.InsertAfter(ctx, afterStationID, newStation, source)
}

// RemoveStationFromDirection removes an interior station from one direction,
// leaving the other direction untouched.
func (g *RouteGraph) RemoveStationFromDirection(ctx context.Context, dir models.Direction, stationID int64, source SegmentSource) error {
	path, err := g.path(dir)
	if err != nil {
		return err
	}
	return path.RemoveInterior(ctx, stationID, source)
}

// ScheduleSlots replaces both slot sets. Every value must belong to the
// fixed 96-slot catalogue; nothing is replaced if any value is invalid.
func (g *RouteGraph) ScheduleSlots(weekday, weekend []string) error {
	wd := map[string]bool{}
	for _, s := range weekday {
		if !schedule.Valid(s) {
			return fmt.Errorf("%w: %q", ErrInvalidSlot, s)
		}
		wd[s] = true
	}
	we := map[string]bool{}
	for _, s := range weekend {
		if !schedule.Valid(s) {
			return fmt.Errorf("%w: %q", ErrInvalidSlot, s)
		}
		we[s] = true
	}

	g.weekdaySlots = wd
	g.weekendSlots = we
	return nil
}

// Schedulable reports whether at least one slot set is non-empty. This is a
// soft check surfaced as a warning, never a hard invariant.
func (g *RouteGraph) Schedulable() bool {
	return len(g.weekdaySlots) > 0 || len(g.weekendSlots) > 0
}

// Aggregates returns the derived totals of one direction
func (g *RouteGraph) Aggregates(dir models.Direction) (models.Aggregates, error) {
	path, err := g.path(dir)
	if err != nil {
		return models.Aggregates{}, err
	}
	return path.RecomputeAggregates(), nil
}

// Outgoing returns the outgoing path
func (g *RouteGraph) Outgoing() *DirectionalPath {
	return g.outgoing
}

// Return returns the return path, or nil when the direction was not built
func (g *RouteGraph) Return() *DirectionalPath {
	return g.ret
}

// StartStationID returns the declared start station id
func (g *RouteGraph) StartStationID() int64 {
	return g.startStationID
}

// EndStationID returns the declared end station id
func (g *RouteGraph) EndStationID() int64 {
	return g.endStationID
}

// Spec returns the scalar route fields
func (g *RouteGraph) Spec() Spec {
	return g.spec
}

// WeekdaySlots returns the weekday slot set in catalogue order
func (g *RouteGraph) WeekdaySlots() []string {
	return sortedSlots(g.weekdaySlots)
}

// WeekendSlots returns the weekend slot set in catalogue order
func (g *RouteGraph) WeekendSlots() []string {
	return sortedSlots(g.weekendSlots)
}

// ToPersistablePayload flattens the graph into the shape expected by the
// persistence layer. Route-level totals are the outgoing direction's
// aggregates, the operator's definition of route length.
func (g *RouteGraph) ToPersistablePayload() models.RoutePayload {
	agg := g.outgoing.RecomputeAggregates()

	payload := models.RoutePayload{
		IdempotencyKey:   uuid.NewString(),
		Name:             g.spec.Name,
		Code:             g.spec.Code,
		Description:      g.spec.Description,
		Color:            g.spec.Color,
		Type:             g.spec.Type,
		StartStationID:   g.startStationID,
		EndStationID:     g.endStationID,
		OutgoingSegments: segmentPayloads(g.outgoing.Segments()),
		WeekdaySlots:     g.WeekdaySlots(),
		WeekendSlots:     g.WeekendSlots(),
		TotalDistanceKm:  agg.TotalDistanceKm,
		TotalDurationMin: agg.TotalDurationMinutes,
	}
	if g.ret != nil {
		payload.ReturnSegments = segmentPayloads(g.ret.Segments())
	}
	return payload
}

func (g *RouteGraph) path(dir models.Direction) (*DirectionalPath, error) {
	switch dir {
	case models.DirectionOutgoing:
		return g.outgoing, nil
	case models.DirectionReturn:
		if g.ret == nil {
			return nil, fmt.Errorf("%w: return direction not built", ErrInvalidPath)
		}
		return g.ret, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDirection, dir)
	}
}

func segmentPayloads(segments []models.Segment) []models.SegmentPayload {
	out := make([]models.SegmentPayload, len(segments))
	for i, seg := range segments {
		out[i] = models.SegmentPayload{
			FromStationID:     seg.FromStationID,
			ToStationID:       seg.ToStationID,
			TravelTimeMinutes: seg.TravelTimeMinutes,
			DistanceKm:        seg.DistanceKm,
			Notes:             seg.Notes,
			Degraded:          seg.Degraded,
		}
	}
	return out
}

func sortedSlots(set map[string]bool) []string {
	slots := make([]string, 0, len(set))
	for s := range set {
		slots = append(slots, s)
	}
	sort.Strings(slots)
	return slots
}
