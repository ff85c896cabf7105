package geo

import (
	"math"

	"github.com/denizztt/bincard-routes/internal/models"
)

const earthRadiusKm = 6371

// DistanceKm calculates the great-circle distance between two coordinates
// in kilometers using the haversine formula
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// EstimatedMinutes derives a travel time from a straight-line distance,
// assuming roughly 40 km/h average speed. Used only by the fallback estimator.
func EstimatedMinutes(distanceKm float64) int {
	return int(math.Ceil(distanceKm * 1.5))
}

// ValidCoordinate reports whether lat/lng form a usable coordinate pair
func ValidCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// NearestStation returns the candidate closest to the given point, or nil on
// an empty candidate set. Ties resolve to the first minimal element in input
// order.
func NearestStation(lat, lng float64, candidates []models.Station) *models.Station {
	if len(candidates) == 0 {
		return nil
	}

	best := 0
	bestDist := DistanceKm(lat, lng, candidates[0].Lat, candidates[0].Lng)

	for i := 1; i < len(candidates); i++ {
		d := DistanceKm(lat, lng, candidates[i].Lat, candidates[i].Lng)
		if d < bestDist {
			best = i
			bestDist = d
		}
	}

	return &candidates[best]
}
