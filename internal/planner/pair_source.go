package planner

import (
	"context"
	"log"

	"github.com/denizztt/bincard-routes/internal/models"
)

// LegCache stores resolved segments per station pair so single-station edits
// do not re-query the routing service for pairs it already answered.
type LegCache interface {
	GetLeg(ctx context.Context, fromStationID, toStationID int64) (*models.Segment, error)
	SetLeg(ctx context.Context, seg models.Segment) error
}

// PairSource is the segment source used by station insert/remove operations.
// It asks the routing service for the single pair and degrades to a
// straight-line estimate on any failure, mirroring the chunk-level behavior
// of Plan.
type PairSource struct {
	service  RoutingService
	cache    LegCache
	fallback FallbackRouter
}

// NewPairSource creates a pair source; cache may be nil
func NewPairSource(service RoutingService, cache LegCache) *PairSource {
	return &PairSource{service: service, cache: cache}
}

// Segment implements route.SegmentSource for a single station pair
func (s *PairSource) Segment(ctx context.Context, from, to models.Station) (models.Segment, error) {
	if s.cache != nil {
		cached, err := s.cache.GetLeg(ctx, from.ID, to.ID)
		if err != nil {
			log.Printf("leg cache read %d -> %d failed: %v", from.ID, to.ID, err)
		} else if cached != nil {
			return *cached, nil
		}
	}

	seg := s.resolve(ctx, from, to)

	// Degraded legs are not cached; a later edit should get another chance
	// at the routing service.
	if s.cache != nil && !seg.Degraded {
		if err := s.cache.SetLeg(ctx, seg); err != nil {
			log.Printf("leg cache write %d -> %d failed: %v", from.ID, to.ID, err)
		}
	}

	return seg, nil
}

func (s *PairSource) resolve(ctx context.Context, from, to models.Station) models.Segment {
	resp, err := s.service.Route(ctx, from, to, nil, false)
	if err != nil {
		log.Printf("routing request %d -> %d failed: %v, using straight-line estimate", from.ID, to.ID, err)
		seg, _ := s.fallback.Segment(ctx, from, to)
		return seg
	}
	if resp.Status != StatusOK || len(resp.Legs) != 1 {
		seg, _ := s.fallback.Segment(ctx, from, to)
		return seg
	}

	distance := resp.Legs[0].DistanceKm
	minutes := resp.Legs[0].DurationMinutes
	return models.Segment{
		FromStationID:     from.ID,
		ToStationID:       to.ID,
		DistanceKm:        &distance,
		TravelTimeMinutes: &minutes,
	}
}
