package geospatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversine(t *testing.T) {
	assert.Zero(t, Haversine(52.37, 4.89, 52.37, 4.89))

	// Amsterdam to Utrecht is roughly 35 km.
	d := Haversine(52.3676, 4.9041, 52.0907, 5.1214)
	assert.InDelta(t, 34400, d, 600)

	// Symmetric.
	assert.InDelta(t, d, Haversine(52.0907, 5.1214, 52.3676, 4.9041), 1e-6)

	// A quarter of the meridian.
	assert.InDelta(t, EarthRadiusMeters*3.141592653589793/2, Haversine(0, 0, 90, 0), 1e-3)
}

func TestWithin(t *testing.T) {
	// 0.0009 degrees of latitude is about 100 m.
	assert.True(t, Within(52.0, 5.0, 52.0008, 5.0, 100))
	assert.False(t, Within(52.0, 5.0, 52.0010, 5.0, 100))
}
