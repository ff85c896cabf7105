package route

import (
	"context"
	"fmt"

	"github.com/denizztt/bincard-routes/internal/models"
)

// SegmentSource produces the segment connecting two stations. Implementations
// are the planner's computed legs and the straight-line estimator; the path
// itself never fabricates metrics.
type SegmentSource interface {
	Segment(ctx context.Context, from, to models.Station) (models.Segment, error)
}

// DirectionalPath is one ordered, connected chain of segments representing a
// single travel direction. All mutation goes through RebuildFrom, InsertAfter
// and RemoveInterior; there is no direct segment mutation API, which keeps
// the connectivity invariant enforceable in one place.
type DirectionalPath struct {
	stations []models.Station
	segments []models.Segment
}

// NewDirectionalPath creates an empty path
func NewDirectionalPath() *DirectionalPath {
	return &DirectionalPath{}
}

// RebuildFrom replaces the entire path with the given ordered stations,
// obtaining one segment per consecutive pair from source. A sequence with a
// repeated station id fails with ErrInvalidPath. Zero stations clears the
// path; a single station yields a partial path with no segments. The path is
// left untouched on any failure.
func (p *DirectionalPath) RebuildFrom(ctx context.Context, stations []models.Station, source SegmentSource) error {
	seen := make(map[int64]bool, len(stations))
	for _, s := range stations {
		if seen[s.ID] {
			return fmt.Errorf("%w: station %d repeated", ErrInvalidPath, s.ID)
		}
		seen[s.ID] = true
	}

	segments := make([]models.Segment, 0, max(len(stations)-1, 0))
	for i := 0; i+1 < len(stations); i++ {
		seg, err := source.Segment(ctx, stations[i], stations[i+1])
		if err != nil {
			return fmt.Errorf("segment %d -> %d: %w", stations[i].ID, stations[i+1].ID, err)
		}
		segments = append(segments, seg)
	}

	p.stations = append([]models.Station{}, stations...)
	p.segments = segments
	return nil
}

// InsertAfter inserts newStation immediately after the station with
// afterStationID. Appends when afterStationID is the current last station;
// otherwise splits the segment leaving afterStationID into two segments
// routed through the new station. A repeated call with the same arguments
// fails with ErrDuplicateStation rather than silently succeeding.
func (p *DirectionalPath) InsertAfter(ctx context.Context, afterStationID int64, newStation models.Station, source SegmentSource) error {
	if p.indexOf(newStation.ID) >= 0 {
		return fmt.Errorf("%w: station %d", ErrDuplicateStation, newStation.ID)
	}

	idx := p.indexOf(afterStationID)
	if idx < 0 {
		return fmt.Errorf("%w: station %d", ErrStationNotFound, afterStationID)
	}

	after := p.stations[idx]

	// Terminal station: plain append.
	if idx == len(p.stations)-1 {
		seg, err := source.Segment(ctx, after, newStation)
		if err != nil {
			return fmt.Errorf("segment %d -> %d: %w", after.ID, newStation.ID, err)
		}
		p.stations = append(p.stations, newStation)
		p.segments = append(p.segments, seg)
		return nil
	}

	// Interior: split segment after->target into after->new and new->target.
	// Both replacement segments are resolved before any mutation.
	target := p.stations[idx+1]
	first, err := source.Segment(ctx, after, newStation)
	if err != nil {
		return fmt.Errorf("segment %d -> %d: %w", after.ID, newStation.ID, err)
	}
	second, err := source.Segment(ctx, newStation, target)
	if err != nil {
		return fmt.Errorf("segment %d -> %d: %w", newStation.ID, target.ID, err)
	}

	stations := make([]models.Station, 0, len(p.stations)+1)
	stations = append(stations, p.stations[:idx+1]...)
	stations = append(stations, newStation)
	stations = append(stations, p.stations[idx+1:]...)

	segments := make([]models.Segment, 0, len(p.segments)+1)
	segments = append(segments, p.segments[:idx]...)
	segments = append(segments, first, second)
	segments = append(segments, p.segments[idx+1:]...)

	p.stations = stations
	p.segments = segments
	return nil
}

// RemoveInterior splices out an interior station, replacing its two adjacent
// segments with a single segment re-queried from source for the former
// neighbor pair. The direct path may differ from the two-hop path, so the
// replacement is not a sum of the removed segments. Endpoints are
// structurally protected.
func (p *DirectionalPath) RemoveInterior(ctx context.Context, stationID int64, source SegmentSource) error {
	idx := p.indexOf(stationID)
	if idx < 0 {
		return fmt.Errorf("%w: station %d", ErrStationNotFound, stationID)
	}
	if idx == 0 || idx == len(p.stations)-1 {
		return fmt.Errorf("%w: station %d", ErrProtectedEndpoint, stationID)
	}

	prev := p.stations[idx-1]
	next := p.stations[idx+1]
	joined, err := source.Segment(ctx, prev, next)
	if err != nil {
		return fmt.Errorf("segment %d -> %d: %w", prev.ID, next.ID, err)
	}

	stations := make([]models.Station, 0, len(p.stations)-1)
	stations = append(stations, p.stations[:idx]...)
	stations = append(stations, p.stations[idx+1:]...)

	segments := make([]models.Segment, 0, len(p.segments)-1)
	segments = append(segments, p.segments[:idx-1]...)
	segments = append(segments, joined)
	segments = append(segments, p.segments[idx+1:]...)

	p.stations = stations
	p.segments = segments
	return nil
}

// RecomputeAggregates folds the segment metrics into path totals. Unknown
// metrics count as 0 and clear IsComplete; a path with fewer than 2 stations
// is always incomplete.
func (p *DirectionalPath) RecomputeAggregates() models.Aggregates {
	agg := models.Aggregates{IsComplete: len(p.segments) > 0}
	for _, seg := range p.segments {
		if seg.DistanceKm != nil {
			agg.TotalDistanceKm += *seg.DistanceKm
		} else {
			agg.IsComplete = false
		}
		if seg.TravelTimeMinutes != nil {
			agg.TotalDurationMinutes += *seg.TravelTimeMinutes
		} else {
			agg.IsComplete = false
		}
	}
	return agg
}

// State reports where the path sits in its lifecycle
func (p *DirectionalPath) State() models.PathState {
	switch {
	case len(p.stations) == 0:
		return models.PathEmpty
	case len(p.stations) == 1:
		return models.PathPartial
	}
	for _, seg := range p.segments {
		if seg.Degraded {
			return models.PathDegraded
		}
	}
	return models.PathConnected
}

// StationSequence returns the ordered station ids (segment count + 1)
func (p *DirectionalPath) StationSequence() []int64 {
	ids := make([]int64, len(p.stations))
	for i, s := range p.stations {
		ids[i] = s.ID
	}
	return ids
}

// Stations returns a copy of the ordered stations
func (p *DirectionalPath) Stations() []models.Station {
	return append([]models.Station{}, p.stations...)
}

// Segments returns a copy of the ordered segments
func (p *DirectionalPath) Segments() []models.Segment {
	return append([]models.Segment{}, p.segments...)
}

// Len returns the number of stations on the path
func (p *DirectionalPath) Len() int {
	return len(p.stations)
}

// First returns the first station, or false for an empty path
func (p *DirectionalPath) First() (models.Station, bool) {
	if len(p.stations) == 0 {
		return models.Station{}, false
	}
	return p.stations[0], true
}

// Last returns the last station, or false for an empty path
func (p *DirectionalPath) Last() (models.Station, bool) {
	if len(p.stations) == 0 {
		return models.Station{}, false
	}
	return p.stations[len(p.stations)-1], true
}

func (p *DirectionalPath) indexOf(stationID int64) int {
	for i, s := range p.stations {
		if s.ID == stationID {
			return i
		}
	}
	return -1
}
