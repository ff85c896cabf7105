package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/denizztt/bincard-routes/internal/cache"
	"github.com/denizztt/bincard-routes/internal/db"
	"github.com/denizztt/bincard-routes/internal/geo"
	"github.com/denizztt/bincard-routes/internal/models"
	"github.com/denizztt/bincard-routes/internal/planner"
	"github.com/denizztt/bincard-routes/internal/route"
	"github.com/denizztt/bincard-routes/internal/store"
)

// StationSource is the station lookup surface the handlers need
type StationSource interface {
	IsLoaded() bool
	ByID(id int64) (models.Station, bool)
	Resolve(ids []int64) ([]models.Station, error)
	Nearby(lat, lng, radiusKm float64, limit int) []models.Station
	Search(query string, limit int) []models.Station
}

// RouteStore is the persistence surface the handlers need
type RouteStore interface {
	CreateRoute(ctx context.Context, payload models.RoutePayload) (int64, error)
	ReplaceDirection(ctx context.Context, routeID int64, dir models.Direction, segments []models.Segment, agg models.Aggregates) error
	UpdateSlots(ctx context.Context, routeID int64, weekday, weekend []string) error
	LoadRoute(ctx context.Context, routeID int64) (*route.RouteGraph, error)
}

// Handlers wires the route-planning core to the HTTP surface
type Handlers struct {
	catalogue StationSource
	planner   *planner.Planner
	pairs     route.SegmentSource
	store     RouteStore
}

// New creates the handler set
func New(catalogue StationSource, p *planner.Planner, pairs route.SegmentSource, s RouteStore) *Handlers {
	return &Handlers{catalogue: catalogue, planner: p, pairs: pairs, store: s}
}

// DirectionView is the response shape of one directional path
type DirectionView struct {
	StationSequence []int64           `json:"station_sequence"`
	Segments        []models.Segment  `json:"segments"`
	Aggregates      models.Aggregates `json:"aggregates"`
	State           models.PathState  `json:"state"`
}

func directionView(p *route.DirectionalPath) DirectionView {
	return DirectionView{
		StationSequence: p.StationSequence(),
		Segments:        p.Segments(),
		Aggregates:      p.RecomputeAggregates(),
		State:           p.State(),
	}
}

// Health handles the /health endpoint
func (h *Handlers) Health(c *fiber.Ctx) error {
	ctx := c.Context()

	dbStatus := "ok"
	dbErr := db.HealthCheck(ctx)
	if dbErr != nil {
		dbStatus = dbErr.Error()
	}

	redisStatus := "ok"
	redisErr := cache.HealthCheck(ctx)
	if redisErr != nil {
		redisStatus = redisErr.Error()
	}

	status := "healthy"
	httpStatus := 200
	if dbErr != nil || redisErr != nil {
		status = "unhealthy"
		httpStatus = 503
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
			"stations": strconv.FormatBool(h.catalogue.IsLoaded()),
		},
	})
}

// StationsNearby handles GET /v2/stations/nearby
func (h *Handlers) StationsNearby(c *fiber.Ctx) error {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid latitude"})
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid longitude"})
	}
	// ParseFloat accepts "NaN" and out-of-range values without error.
	if !geo.ValidCoordinate(lat, lng) {
		return respondError(c, fmt.Errorf("%w: %v, %v", route.ErrInvalidCoordinate, lat, lng))
	}
	radiusKm, err := strconv.ParseFloat(c.Query("radius_km", "1"), 64)
	if err != nil || radiusKm <= 0 || radiusKm > 20 {
		return c.Status(400).JSON(fiber.Map{"error": "invalid radius (must be between 0 and 20 km)"})
	}

	result := h.catalogue.Nearby(lat, lng, radiusKm, 20)
	if result == nil {
		result = []models.Station{}
	}
	return c.JSON(fiber.Map{"stations": result, "total": len(result)})
}

// StationsSearch handles GET /v2/stations/search
func (h *Handlers) StationsSearch(c *fiber.Ctx) error {
	q := c.Query("q")
	if q == "" {
		return c.Status(400).JSON(fiber.Map{"error": "missing required parameter: q"})
	}
	result := h.catalogue.Search(q, 20)
	return c.JSON(fiber.Map{"stations": result, "total": len(result)})
}

type planRequest struct {
	StationIDs []int64 `json:"station_ids"`
}

// PlanPreview handles POST /v2/routes/plan: routes an ordered station
// selection without persisting anything, so the console can show the path
// while the operator is still editing.
func (h *Handlers) PlanPreview(c *fiber.Ctx) error {
	var req planRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	selected, err := h.catalogue.Resolve(req.StationIDs)
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"error": err.Error()})
	}

	result, err := h.planner.Plan(c.Context(), selected)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"path":     directionView(result.Path),
		"warnings": warningsOrEmpty(result.Warnings),
		"complete": result.Complete,
	})
}

type createRouteRequest struct {
	Name               string   `json:"name"`
	Code               string   `json:"code"`
	Description        string   `json:"description"`
	Color              string   `json:"color"`
	RouteType          string   `json:"route_type"`
	OutgoingStationIDs []int64  `json:"outgoing_station_ids"`
	ReturnStationIDs   []int64  `json:"return_station_ids"`
	WeekdaySlots       []string `json:"weekday_slots"`
	WeekendSlots       []string `json:"weekend_slots"`
}

// CreateRoute handles POST /v2/routes: plans both directions, builds the
// graph and persists the flattened payload. Degraded plans are persistable;
// they are valid, just lower-confidence.
func (h *Handlers) CreateRoute(c *fiber.Ctx) error {
	var req createRouteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Name == "" || req.Code == "" {
		return c.Status(400).JSON(fiber.Map{"error": "name and code are required"})
	}
	if !models.ValidRouteType(models.RouteType(req.RouteType)) {
		return c.Status(400).JSON(fiber.Map{"error": "unknown route type"})
	}

	outgoing, err := h.catalogue.Resolve(req.OutgoingStationIDs)
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"error": err.Error()})
	}
	var ret []models.Station
	if len(req.ReturnStationIDs) > 0 {
		if ret, err = h.catalogue.Resolve(req.ReturnStationIDs); err != nil {
			return c.Status(404).JSON(fiber.Map{"error": err.Error()})
		}
	}

	ctx := c.Context()
	var warnings []string

	outPlan, err := h.planner.Plan(ctx, outgoing)
	if err != nil {
		return respondError(c, err)
	}
	warnings = append(warnings, outPlan.Warnings...)

	segments := outPlan.Path.Segments()
	if len(ret) > 0 {
		retPlan, err := h.planner.Plan(ctx, ret)
		if err != nil {
			return respondError(c, err)
		}
		warnings = append(warnings, retPlan.Warnings...)
		segments = append(segments, retPlan.Path.Segments()...)
	}

	spec := route.Spec{
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
		Color:       req.Color,
		Type:        models.RouteType(req.RouteType),
	}
	g, err := route.Create(ctx, spec, outgoing, ret, route.NewSegmentList(segments))
	if err != nil {
		return respondError(c, err)
	}
	if err := g.ScheduleSlots(req.WeekdaySlots, req.WeekendSlots); err != nil {
		return respondError(c, err)
	}
	if !g.Schedulable() {
		warnings = append(warnings, "route has no schedule slots")
	}

	payload := g.ToPersistablePayload()
	routeID, err := h.store.CreateRoute(ctx, payload)
	if err != nil {
		log.Printf("persist route %s failed: %v", req.Code, err)
		return c.Status(500).JSON(fiber.Map{"error": "internal server error"})
	}

	resp := fiber.Map{
		"route_id": routeID,
		"payload":  payload,
		"outgoing": directionView(g.Outgoing()),
		"warnings": warningsOrEmpty(warnings),
	}
	if g.Return() != nil {
		resp["return"] = directionView(g.Return())
	}
	return c.Status(201).JSON(resp)
}

type stationEditRequest struct {
	Direction      string `json:"direction"`
	AfterStationID int64  `json:"after_station_id"`
	NewStationID   int64  `json:"new_station_id"`
	StationID      int64  `json:"station_id"`
}

// AddStation handles POST /v2/routes/:id/stations: one in-memory graph
// insert and one persistence write per call, so server and graph state never
// diverge.
func (h *Handlers) AddStation(c *fiber.Ctx) error {
	routeID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid route id"})
	}

	var req stationEditRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	newStation, ok := h.catalogue.ByID(req.NewStationID)
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "unknown station id"})
	}

	ctx := c.Context()
	g, err := h.store.LoadRoute(ctx, routeID)
	if err != nil {
		return respondError(c, err)
	}

	dir := models.Direction(req.Direction)
	if err := g.AddStationToDirection(ctx, dir, req.AfterStationID, newStation, h.pairs); err != nil {
		return respondError(c, err)
	}

	if err := h.persistDirection(ctx, g, routeID, dir); err != nil {
		log.Printf("persist %s direction for route %d failed: %v", dir, routeID, err)
		return c.Status(500).JSON(fiber.Map{"error": "internal server error"})
	}
	return h.respondDirection(c, g, dir)
}

// RemoveStation handles DELETE /v2/routes/:id/stations
func (h *Handlers) RemoveStation(c *fiber.Ctx) error {
	routeID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid route id"})
	}

	var req stationEditRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	ctx := c.Context()
	g, err := h.store.LoadRoute(ctx, routeID)
	if err != nil {
		return respondError(c, err)
	}

	dir := models.Direction(req.Direction)
	if err := g.RemoveStationFromDirection(ctx, dir, req.StationID, h.pairs); err != nil {
		return respondError(c, err)
	}

	if err := h.persistDirection(ctx, g, routeID, dir); err != nil {
		log.Printf("persist %s direction for route %d failed: %v", dir, routeID, err)
		return c.Status(500).JSON(fiber.Map{"error": "internal server error"})
	}
	return h.respondDirection(c, g, dir)
}

type slotsRequest struct {
	WeekdaySlots []string `json:"weekday_slots"`
	WeekendSlots []string `json:"weekend_slots"`
}

// UpdateSlots handles PUT /v2/routes/:id/slots
func (h *Handlers) UpdateSlots(c *fiber.Ctx) error {
	routeID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid route id"})
	}

	var req slotsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	ctx := c.Context()
	g, err := h.store.LoadRoute(ctx, routeID)
	if err != nil {
		return respondError(c, err)
	}

	if err := g.ScheduleSlots(req.WeekdaySlots, req.WeekendSlots); err != nil {
		return respondError(c, err)
	}
	if err := h.store.UpdateSlots(ctx, routeID, g.WeekdaySlots(), g.WeekendSlots()); err != nil {
		log.Printf("persist slots for route %d failed: %v", routeID, err)
		return c.Status(500).JSON(fiber.Map{"error": "internal server error"})
	}

	var warnings []string
	if !g.Schedulable() {
		warnings = append(warnings, "route has no schedule slots")
	}
	return c.JSON(fiber.Map{
		"weekday_slots": g.WeekdaySlots(),
		"weekend_slots": g.WeekendSlots(),
		"warnings":      warningsOrEmpty(warnings),
	})
}

// GetRoute handles GET /v2/routes/:id
func (h *Handlers) GetRoute(c *fiber.Ctx) error {
	routeID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid route id"})
	}

	g, err := h.store.LoadRoute(c.Context(), routeID)
	if err != nil {
		return respondError(c, err)
	}

	resp := fiber.Map{
		"name":             g.Spec().Name,
		"code":             g.Spec().Code,
		"description":      g.Spec().Description,
		"color":            g.Spec().Color,
		"route_type":       g.Spec().Type,
		"start_station_id": g.StartStationID(),
		"end_station_id":   g.EndStationID(),
		"outgoing":         directionView(g.Outgoing()),
		"weekday_slots":    g.WeekdaySlots(),
		"weekend_slots":    g.WeekendSlots(),
		"schedulable":      g.Schedulable(),
	}
	if g.Return() != nil {
		resp["return"] = directionView(g.Return())
	}
	return c.JSON(resp)
}

func (h *Handlers) persistDirection(ctx context.Context, g *route.RouteGraph, routeID int64, dir models.Direction) error {
	path := g.Outgoing()
	if dir == models.DirectionReturn {
		path = g.Return()
	}
	return h.store.ReplaceDirection(ctx, routeID, dir, path.Segments(), path.RecomputeAggregates())
}

func (h *Handlers) respondDirection(c *fiber.Ctx, g *route.RouteGraph, dir models.Direction) error {
	path := g.Outgoing()
	if dir == models.DirectionReturn {
		path = g.Return()
	}
	return c.JSON(fiber.Map{"direction": dir, "path": directionView(path)})
}

// respondError maps the error taxonomy onto HTTP statuses. Structural
// violations are client errors; anything unrecognized is a 500.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, store.ErrRouteNotFound), errors.Is(err, route.ErrStationNotFound):
		return c.Status(404).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, route.ErrDuplicateStation):
		return c.Status(409).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, route.ErrProtectedEndpoint),
		errors.Is(err, route.ErrInsufficientStations),
		errors.Is(err, route.ErrDirectionReversal),
		errors.Is(err, route.ErrInvalidSlot),
		errors.Is(err, route.ErrInvalidPath),
		errors.Is(err, route.ErrInvalidCoordinate),
		errors.Is(err, route.ErrUnknownDirection):
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	default:
		log.Printf("internal error: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "internal server error"})
	}
}

func warningsOrEmpty(warnings []string) []string {
	if warnings == nil {
		return []string{}
	}
	return warnings
}
