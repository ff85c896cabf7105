package route

import "errors"

// Structural invariant violations. These are rejected synchronously, before
// any mutation is applied; operations are all-or-nothing.
var (
	// ErrInvalidPath is returned when a station sequence cannot form a path
	// (fewer than 2 stations where a non-empty path is required, or a
	// repeated station id).
	ErrInvalidPath = errors.New("invalid station sequence for path")

	// ErrDuplicateStation is returned when an insert would revisit a station
	// already on the path.
	ErrDuplicateStation = errors.New("station already present on path")

	// ErrStationNotFound is returned when the referenced station is not on
	// the path.
	ErrStationNotFound = errors.New("station not found on path")

	// ErrProtectedEndpoint is returned when removing the first or last
	// station of a path. Endpoints define the route's declared start/end and
	// may only change through a route-level edit.
	ErrProtectedEndpoint = errors.New("cannot remove path endpoint")

	// ErrInsufficientStations is returned when a route is created with fewer
	// than 2 outgoing stations.
	ErrInsufficientStations = errors.New("route requires at least 2 stations")

	// ErrDirectionReversal is returned when the return direction does not run
	// end-to-start relative to the outgoing direction.
	ErrDirectionReversal = errors.New("return direction must run end to start")

	// ErrInvalidSlot is returned for a schedule value outside the fixed
	// 15-minute slot catalogue.
	ErrInvalidSlot = errors.New("slot not in schedule catalogue")

	// ErrInvalidCoordinate is returned when a station carries unusable
	// coordinates.
	ErrInvalidCoordinate = errors.New("invalid station coordinates")

	// ErrUnknownDirection is returned for a direction value that is neither
	// OUTGOING nor RETURN.
	ErrUnknownDirection = errors.New("unknown route direction")
)
