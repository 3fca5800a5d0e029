package routing

import (
	"github.com/courierloop/courierloop-backend/pkg/geo"
)

// NearestNeighborOrder sequences stops greedily by haversine distance from
// the current position. Ties break on the smaller order id so the result is
// deterministic. Used when the directions provider cannot reorder stops.
func NearestNeighborOrder(origin Coordinate, stops []Stop) []Stop {
	remaining := make([]Stop, len(stops))
	copy(remaining, stops)

	ordered := make([]Stop, 0, len(remaining))
	current := origin

	for len(remaining) > 0 {
		bestIdx := 0
		bestDist := geo.HaversineKm(current.Lat, current.Lon, remaining[0].Coordinate.Lat, remaining[0].Coordinate.Lon)
		for i := 1; i < len(remaining); i++ {
			d := geo.HaversineKm(current.Lat, current.Lon, remaining[i].Coordinate.Lat, remaining[i].Coordinate.Lon)
			if d < bestDist || (d == bestDist && remaining[i].OrderID < remaining[bestIdx].OrderID) {
				bestDist = d
				bestIdx = i
			}
		}
		next := remaining[bestIdx]
		ordered = append(ordered, next)
		current = next.Coordinate
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return ordered
}

// FallbackRoute builds an estimate-only route when the directions provider is
// unavailable: nearest-neighbor ordering with haversine leg distances and a
// flat average road speed. No geometry is produced.
func FallbackRoute(origin Coordinate, stops []Stop, avgSpeedKmh float64) *Route {
	if avgSpeedKmh <= 0 {
		avgSpeedKmh = 40
	}

	ordered := NearestNeighborOrder(origin, stops)

	legs := make([]float64, 0, len(ordered))
	totalKm := 0.0
	totalMin := 0.0
	current := origin
	for _, stop := range ordered {
		km := geo.HaversineKm(current.Lat, current.Lon, stop.Coordinate.Lat, stop.Coordinate.Lon)
		min := km / avgSpeedKmh * 60
		legs = append(legs, min)
		totalKm += km
		totalMin += min
		current = stop.Coordinate
	}

	return &Route{
		Stops:             ordered,
		TotalDistanceKm:   geo.Round2(totalKm),
		TotalDurationMin:  totalMin,
		PerLegDurationMin: legs,
	}
}
