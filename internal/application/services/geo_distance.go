package services

import (
	"math"

	"github.com/kosherdirectory/discovery/internal/domain/entities"
)

const earthRadiusMiles = 3959.0

// DistanceMiles returns the great-circle distance between a and b. When
// either point is invalid it returns +Inf and false; callers sort those last
// and exclude them from radius checks.
func DistanceMiles(a, b entities.GeoPoint) (float64, bool) {
	if !a.Valid() || !b.Valid() {
		return math.Inf(1), false
	}
	return haversine(a.Latitude, a.Longitude, b.Latitude, b.Longitude, earthRadiusMiles), true
}

func haversine(lat1, lon1, lat2, lon2, radius float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLon := degreesToRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(degreesToRadians(lat1))*math.Cos(degreesToRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return radius * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
