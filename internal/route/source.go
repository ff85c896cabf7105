package route

import (
	"context"
	"fmt"

	"github.com/denizztt/bincard-routes/internal/models"
)

// SegmentList replays precomputed segments in order through the
// SegmentSource interface. It lets callers that already hold resolved
// segments (the planner's stitched legs, rows loaded from storage) rebuild a
// path without bypassing the path's mutation API.
type SegmentList struct {
	segments []models.Segment
	next     int
}

// NewSegmentList creates a replay source over the given segments
func NewSegmentList(segments []models.Segment) *SegmentList {
	return &SegmentList{segments: segments}
}

// Segment returns the next segment, verifying it matches the requested pair
func (l *SegmentList) Segment(_ context.Context, from, to models.Station) (models.Segment, error) {
	if l.next >= len(l.segments) {
		return models.Segment{}, fmt.Errorf("no segment left for pair %d -> %d", from.ID, to.ID)
	}
	seg := l.segments[l.next]
	if seg.FromStationID != from.ID || seg.ToStationID != to.ID {
		return models.Segment{}, fmt.Errorf("segment order mismatch: have %d -> %d, want %d -> %d",
			seg.FromStationID, seg.ToStationID, from.ID, to.ID)
	}
	l.next++
	return seg, nil
}
