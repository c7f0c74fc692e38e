// README: Pure geographic helpers (haversine distance and route interpolation).
package location

import (
	"math"

	"github.com/shopspring/decimal"

	"tracker/internal/types"
)

const earthRadiusKm = 6371.0

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

// DistanceKm is the haversine distance between two points.
func DistanceKm(a, b types.Point) float64 {
	lat1, lng1 := a.Floats()
	lat2, lng2 := b.Floats()
	return haversineKm(lat1, lng1, lat2, lng2)
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Waypoints linearly interpolates latitude and longitude from -> to and
// returns steps+1 points: index 0 is from and index steps is to. The
// arithmetic is done in decimal so endpoints come back exact.
func Waypoints(from, to types.Point, steps int) []types.Point {
	if steps < 1 {
		return []types.Point{from, to}
	}
	n := decimal.NewFromInt(int64(steps))
	dLat := to.Lat.Sub(from.Lat)
	dLng := to.Lng.Sub(from.Lng)

	out := make([]types.Point, 0, steps+1)
	for i := 0; i <= steps; i++ {
		k := decimal.NewFromInt(int64(i))
		out = append(out, types.NewPoint(
			from.Lat.Add(dLat.Mul(k).DivRound(n, types.CoordScale+2)),
			from.Lng.Add(dLng.Mul(k).DivRound(n, types.CoordScale+2)),
		))
	}
	return out
}

// SortByDistance performs an insertion sort (fine for small N) on any slice
// where each element exposes a distance via the accessor function.
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
