package geospatial

import "math"

// EarthRadiusMeters is the mean earth radius used for all distances.
const EarthRadiusMeters = 6371000.0

// Haversine calculates the great-circle distance in meters between two points
// given in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

// Within reports whether the two points are at most meters apart.
func Within(lat1, lon1, lat2, lon2, meters float64) bool {
	return Haversine(lat1, lon1, lat2, lon2) <= meters
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
