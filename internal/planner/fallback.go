package planner

import (
	"context"
	"fmt"

	"github.com/denizztt/bincard-routes/internal/geo"
	"github.com/denizztt/bincard-routes/internal/models"
	"github.com/denizztt/bincard-routes/internal/route"
)

// FallbackNotes marks a segment whose metrics are a straight-line estimate
const FallbackNotes = "Tahmini mesafe (düz çizgi)"

// FallbackRouter produces straight-line segment estimates when the routing
// service is unavailable for a chunk. It never fails the plan: a pair with
// malformed coordinates is recorded with unknown metrics, which clears the
// path's completeness flag.
type FallbackRouter struct{}

// Segment implements route.SegmentSource with a haversine distance and a
// 40 km/h duration heuristic. The segment is always flagged degraded.
func (FallbackRouter) Segment(_ context.Context, from, to models.Station) (models.Segment, error) {
	if from.ID == to.ID {
		return models.Segment{}, fmt.Errorf("%w: segment %d -> %d", route.ErrInvalidPath, from.ID, to.ID)
	}

	seg := models.Segment{
		FromStationID: from.ID,
		ToStationID:   to.ID,
		Notes:         FallbackNotes,
		Degraded:      true,
	}

	if !geo.ValidCoordinate(from.Lat, from.Lng) || !geo.ValidCoordinate(to.Lat, to.Lng) {
		// Recovered per pair: unknown metrics, the rest of the path still
		// completes.
		return seg, nil
	}

	distance := geo.DistanceKm(from.Lat, from.Lng, to.Lat, to.Lng)
	minutes := geo.EstimatedMinutes(distance)
	seg.DistanceKm = &distance
	seg.TravelTimeMinutes = &minutes
	return seg, nil
}

// Estimate returns one straight-line segment per consecutive station pair
func (f FallbackRouter) Estimate(stations []models.Station) []models.Segment {
	if len(stations) < 2 {
		return []models.Segment{}
	}

	segments := make([]models.Segment, 0, len(stations)-1)
	for i := 0; i+1 < len(stations); i++ {
		seg, err := f.Segment(context.Background(), stations[i], stations[i+1])
		if err != nil {
			// Equal adjacent ids cannot occur on a validated sequence; keep
			// the pair visible with unknown metrics rather than dropping it.
			seg = models.Segment{
				FromStationID: stations[i].ID,
				ToStationID:   stations[i+1].ID,
				Notes:         FallbackNotes,
				Degraded:      true,
			}
		}
		segments = append(segments, seg)
	}
	return segments
}
