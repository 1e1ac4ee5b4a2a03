package domain

import "fmt"

// Coordinate represents a geographic coordinate (WGS 84).
type Coordinate struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// DefaultCenter is the centroid of the Netherlands, used when neither a
// query nor a device position is available.
var DefaultCenter = Coordinate{Latitude: 52.1326, Longitude: 5.2913}

// Valid reports whether the coordinate lies within WGS 84 bounds.
func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Latitude, c.Longitude)
}

// NavigationURL returns a Google Maps directions link to the coordinate.
func NavigationURL(c Coordinate) string {
	return fmt.Sprintf("https://www.google.com/maps/dir/?api=1&destination=%g,%g", c.Latitude, c.Longitude)
}
