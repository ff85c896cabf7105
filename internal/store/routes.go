// Package store persists route graphs to PostgreSQL. Each API-level station
// insert or removal maps onto exactly one ReplaceDirection call, so server
// state and in-memory graph state never diverge per call.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/denizztt/bincard-routes/internal/models"
	"github.com/denizztt/bincard-routes/internal/route"
)

// ErrRouteNotFound is returned when the requested route id does not exist
var ErrRouteNotFound = errors.New("route not found")

// Store handles route persistence
type Store struct {
	db *pgxpool.Pool
}

// NewStore creates a route store
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// CreateRoute persists a flattened route payload and returns the new route id
func (s *Store) CreateRoute(ctx context.Context, payload models.RoutePayload) (int64, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// A replayed payload (same idempotency key) returns the existing route
	// without touching its rows.
	var routeID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO route (idempotency_key, name, code, description, color, route_type,
		                   start_station_id, end_station_id, total_distance_km, total_duration_min)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING id
	`, payload.IdempotencyKey, payload.Name, payload.Code, payload.Description, payload.Color,
		payload.Type, payload.StartStationID, payload.EndStationID,
		payload.TotalDistanceKm, payload.TotalDurationMin).Scan(&routeID)
	if err == pgx.ErrNoRows {
		err = tx.QueryRow(ctx, `
			SELECT id FROM route WHERE idempotency_key = $1
		`, payload.IdempotencyKey).Scan(&routeID)
		if err != nil {
			return 0, fmt.Errorf("lookup existing route: %w", err)
		}
		return routeID, nil
	}
	if err != nil {
		return 0, fmt.Errorf("insert route: %w", err)
	}

	if err := insertSegments(ctx, tx, routeID, models.DirectionOutgoing, payload.OutgoingSegments); err != nil {
		return 0, err
	}
	if len(payload.ReturnSegments) > 0 {
		if err := insertSegments(ctx, tx, routeID, models.DirectionReturn, payload.ReturnSegments); err != nil {
			return 0, err
		}
	}

	if err := insertSlots(ctx, tx, routeID, "WEEKDAY", payload.WeekdaySlots); err != nil {
		return 0, err
	}
	if err := insertSlots(ctx, tx, routeID, "WEEKEND", payload.WeekendSlots); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit route: %w", err)
	}
	return routeID, nil
}

// ReplaceDirection rewrites one direction's segments after a graph mutation.
// Route-level totals follow the outgoing direction.
func (s *Store) ReplaceDirection(ctx context.Context, routeID int64, dir models.Direction, segments []models.Segment, agg models.Aggregates) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM route_segment WHERE route_id = $1 AND direction = $2
	`, routeID, dir); err != nil {
		return fmt.Errorf("delete %s segments: %w", dir, err)
	}

	if err := insertRawSegments(ctx, tx, routeID, dir, segments); err != nil {
		return err
	}

	if dir == models.DirectionOutgoing {
		if _, err := tx.Exec(ctx, `
			UPDATE route SET total_distance_km = $2, total_duration_min = $3 WHERE id = $1
		`, routeID, agg.TotalDistanceKm, agg.TotalDurationMinutes); err != nil {
			return fmt.Errorf("update route totals: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// UpdateSlots rewrites both slot sets of a route
func (s *Store) UpdateSlots(ctx context.Context, routeID int64, weekday, weekend []string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM route_slot WHERE route_id = $1`, routeID); err != nil {
		return fmt.Errorf("delete slots: %w", err)
	}
	if err := insertSlots(ctx, tx, routeID, "WEEKDAY", weekday); err != nil {
		return err
	}
	if err := insertSlots(ctx, tx, routeID, "WEEKEND", weekend); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// LoadRoute reconstructs the route graph from storage so mutations operate
// on server truth
func (s *Store) LoadRoute(ctx context.Context, routeID int64) (*route.RouteGraph, error) {
	var spec route.Spec
	var startID, endID int64
	err := s.db.QueryRow(ctx, `
		SELECT name, code, COALESCE(description, ''), COALESCE(color, ''), route_type,
		       start_station_id, end_station_id
		FROM route WHERE id = $1
	`, routeID).Scan(&spec.Name, &spec.Code, &spec.Description, &spec.Color, &spec.Type, &startID, &endID)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("route %d: %w", routeID, ErrRouteNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load route %d: %w", routeID, err)
	}

	outStations, outSegments, err := s.loadDirection(ctx, routeID, models.DirectionOutgoing)
	if err != nil {
		return nil, err
	}
	retStations, retSegments, err := s.loadDirection(ctx, routeID, models.DirectionReturn)
	if err != nil {
		return nil, err
	}

	g, err := route.Create(ctx, spec, outStations, retStations,
		route.NewSegmentList(append(outSegments, retSegments...)))
	if err != nil {
		return nil, fmt.Errorf("rebuild route %d: %w", routeID, err)
	}

	weekday, weekend, err := s.loadSlots(ctx, routeID)
	if err != nil {
		return nil, err
	}
	if err := g.ScheduleSlots(weekday, weekend); err != nil {
		return nil, fmt.Errorf("rebuild route %d slots: %w", routeID, err)
	}

	return g, nil
}

// loadDirection returns the ordered stations and segments of one direction
func (s *Store) loadDirection(ctx context.Context, routeID int64, dir models.Direction) ([]models.Station, []models.Segment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT rs.from_station_id, rs.to_station_id, rs.travel_time_minutes, rs.distance_km,
		       COALESCE(rs.notes, ''), rs.degraded,
		       sf.name, sf.lat, sf.lng,
		       st.name, st.lat, st.lng
		FROM route_segment rs
		JOIN station sf ON sf.id = rs.from_station_id
		JOIN station st ON st.id = rs.to_station_id
		WHERE rs.route_id = $1 AND rs.direction = $2
		ORDER BY rs.seq
	`, routeID, dir)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s segments: %w", dir, err)
	}
	defer rows.Close()

	var stations []models.Station
	var segments []models.Segment

	for rows.Next() {
		var seg models.Segment
		var from, to models.Station
		if err := rows.Scan(&seg.FromStationID, &seg.ToStationID, &seg.TravelTimeMinutes, &seg.DistanceKm,
			&seg.Notes, &seg.Degraded,
			&from.Name, &from.Lat, &from.Lng,
			&to.Name, &to.Lat, &to.Lng); err != nil {
			return nil, nil, fmt.Errorf("scan %s segment: %w", dir, err)
		}
		from.ID = seg.FromStationID
		to.ID = seg.ToStationID

		if len(stations) == 0 {
			stations = append(stations, from)
		}
		stations = append(stations, to)
		segments = append(segments, seg)
	}

	return stations, segments, rows.Err()
}

func (s *Store) loadSlots(ctx context.Context, routeID int64) (weekday, weekend []string, err error) {
	rows, err := s.db.Query(ctx, `
		SELECT day_kind, slot FROM route_slot WHERE route_id = $1 ORDER BY slot
	`, routeID)
	if err != nil {
		return nil, nil, fmt.Errorf("load slots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind, slot string
		if err := rows.Scan(&kind, &slot); err != nil {
			return nil, nil, fmt.Errorf("scan slot: %w", err)
		}
		if kind == "WEEKEND" {
			weekend = append(weekend, slot)
		} else {
			weekday = append(weekday, slot)
		}
	}

	return weekday, weekend, rows.Err()
}

func insertSegments(ctx context.Context, tx pgx.Tx, routeID int64, dir models.Direction, segments []models.SegmentPayload) error {
	for i, seg := range segments {
		if _, err := tx.Exec(ctx, `
			INSERT INTO route_segment (route_id, direction, seq, from_station_id, to_station_id,
			                           travel_time_minutes, distance_km, notes, degraded)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, routeID, dir, i, seg.FromStationID, seg.ToStationID,
			seg.TravelTimeMinutes, seg.DistanceKm, seg.Notes, seg.Degraded); err != nil {
			return fmt.Errorf("insert %s segment %d: %w", dir, i, err)
		}
	}
	return nil
}

func insertRawSegments(ctx context.Context, tx pgx.Tx, routeID int64, dir models.Direction, segments []models.Segment) error {
	for i, seg := range segments {
		if _, err := tx.Exec(ctx, `
			INSERT INTO route_segment (route_id, direction, seq, from_station_id, to_station_id,
			                           travel_time_minutes, distance_km, notes, degraded)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, routeID, dir, i, seg.FromStationID, seg.ToStationID,
			seg.TravelTimeMinutes, seg.DistanceKm, seg.Notes, seg.Degraded); err != nil {
			return fmt.Errorf("insert %s segment %d: %w", dir, i, err)
		}
	}
	return nil
}

func insertSlots(ctx context.Context, tx pgx.Tx, routeID int64, dayKind string, slots []string) error {
	for _, slot := range slots {
		if _, err := tx.Exec(ctx, `
			INSERT INTO route_slot (route_id, day_kind, slot) VALUES ($1, $2, $3)
		`, routeID, dayKind, slot); err != nil {
			return fmt.Errorf("insert %s slot %s: %w", dayKind, slot, err)
		}
	}
	return nil
}
