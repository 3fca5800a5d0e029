package geo

import "math"

// EarthRadiusKm is Earth's radius in kilometers for Haversine calculation.
const EarthRadiusKm = 6371.0

// HaversineKm calculates the great-circle distance between two points on
// Earth in kilometers, rounded to two decimal places. It is an estimate used
// for pricing and fallback sequencing, not a substitute for road distance.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180
	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return Round2(EarthRadiusKm * c)
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
