// README: Pure geographic helpers: haversine distance and distance ordering.
package location

import (
	"math"

	"dispatchdesk/internal/types"
)

const earthRadiusKm = 6371.0

// SentinelDistanceKm is returned when a distance cannot be computed. It is
// large enough that such pairs always sort last.
const SentinelDistanceKm = 9999.0

// DistanceKm returns the great-circle distance between a and b in kilometres,
// rounded to 2 decimals. If any coordinate is missing or zero the sentinel is
// returned instead of an error.
func DistanceKm(a, b types.Point) float64 {
	if !a.Valid() || !b.Valid() {
		return SentinelDistanceKm
	}
	return roundTo2(haversineKm(a.Lat, a.Lng, b.Lat, b.Lng))
}

// haversineKm returns the great-circle distance in kilometres between two
// points specified in decimal degrees.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLng := degreesToRadians(lng2 - lng1)

	rLat1 := degreesToRadians(lat1)
	rLat2 := degreesToRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

// SortByDistance performs an insertion sort (fine for small N) on any slice
// where each element exposes a distance via the accessor function. Equal
// distances keep their input order.
func SortByDistance[T any](items []T, dist func(T) float64) {
	for i := 1; i < len(items); i++ {
		key := items[i]
		j := i - 1
		for j >= 0 && dist(items[j]) > dist(key) {
			items[j+1] = items[j]
			j--
		}
		items[j+1] = key
	}
}
