package models

import "time"

// RouteType represents the kind of transit service a route provides
type RouteType string

const (
	TypeCityBus  RouteType = "CITY_BUS"
	TypeMetro    RouteType = "METRO"
	TypeMetrobus RouteType = "METROBUS"
	TypeTram     RouteType = "TRAM"
	TypeFerry    RouteType = "FERRY"
	TypeMinibus  RouteType = "MINIBUS"
	TypeExpress  RouteType = "EXPRESS"
)

// ValidRouteType reports whether t is a known route type
func ValidRouteType(t RouteType) bool {
	switch t {
	case TypeCityBus, TypeMetro, TypeMetrobus, TypeTram, TypeFerry, TypeMinibus, TypeExpress:
		return true
	}
	return false
}

// Direction identifies one of the two travel directions of a route
type Direction string

const (
	DirectionOutgoing Direction = "OUTGOING"
	DirectionReturn   Direction = "RETURN"
)

// PathState classifies the lifecycle state of a directional path
type PathState string

const (
	PathEmpty     PathState = "EMPTY"
	PathPartial   PathState = "PARTIAL"
	PathConnected PathState = "CONNECTED"
	PathDegraded  PathState = "DEGRADED"
)

// Station is a physical stop location, referenced by routes through its ID.
// The core holds read-only copies for display and distance math; the
// catalogue is refreshed wholesale by the loader, never partially mutated.
type Station struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code,omitempty"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	City      string    `json:"city,omitempty"`
	District  string    `json:"district,omitempty"`
	CreatedAt time.Time `json:"-"`
}

// Segment is a directed edge between two station references with travel
// metrics. DistanceKm and TravelTimeMinutes are nil when unknown; Degraded is
// set when the metrics came from the straight-line estimator instead of the
// routing service.
type Segment struct {
	FromStationID     int64    `json:"from_station_id"`
	ToStationID       int64    `json:"to_station_id"`
	TravelTimeMinutes *int     `json:"estimated_travel_time_minutes"`
	DistanceKm        *float64 `json:"distance_km"`
	Notes             string   `json:"notes,omitempty"`
	Degraded          bool     `json:"degraded,omitempty"`
}

// Aggregates holds the derived totals of a directional path.
// Unknown segment metrics contribute 0 and clear IsComplete.
type Aggregates struct {
	TotalDistanceKm      float64 `json:"total_distance_km"`
	TotalDurationMinutes int     `json:"total_duration_minutes"`
	IsComplete           bool    `json:"is_complete"`
}

// SegmentPayload is the wire shape of one segment toward the persistence API.
// Degraded stays off the wire; the store persists it as a column.
type SegmentPayload struct {
	FromStationID     int64    `json:"fromStationId"`
	ToStationID       int64    `json:"toStationId"`
	TravelTimeMinutes *int     `json:"estimatedTravelTimeMinutes"`
	DistanceKm        *float64 `json:"distanceKm"`
	Notes             string   `json:"notes,omitempty"`
	Degraded          bool     `json:"-"`
}

// RoutePayload is the flattened route shape handed to the persistence layer
type RoutePayload struct {
	IdempotencyKey   string           `json:"idempotencyKey,omitempty"`
	Name             string           `json:"name"`
	Code             string           `json:"code"`
	Description      string           `json:"description,omitempty"`
	Color            string           `json:"color,omitempty"`
	Type             RouteType        `json:"routeType"`
	StartStationID   int64            `json:"startStationId"`
	EndStationID     int64            `json:"endStationId"`
	OutgoingSegments []SegmentPayload `json:"outgoingSegments"`
	ReturnSegments   []SegmentPayload `json:"returnSegments,omitempty"`
	WeekdaySlots     []string         `json:"weekdaySlots"`
	WeekendSlots     []string         `json:"weekendSlots"`
	TotalDistanceKm  float64          `json:"totalDistanceKm"`
	TotalDurationMin int              `json:"totalDurationMinutes"`
}
