package usecases

import (
	"sort"

	"github.com/samirrijal/campfinder/internal/core/domain"
	"github.com/samirrijal/campfinder/internal/pkg/geospatial"
)

// Rank returns a new result set ordered by ascending great-circle distance
// from center. Excluded records are dropped; records without a coordinate get
// UnmappableDistance and sort last. Ties keep their input order, so ranking a
// ranked set is a no-op. The input is not modified.
func Rank(records domain.ResultSet, center domain.Coordinate) domain.ResultSet {
	out := make(domain.ResultSet, 0, len(records))
	for _, r := range records {
		if r.Excluded() {
			continue
		}
		if r.Coordinate != nil {
			c := *r.Coordinate
			r.Coordinate = &c
			r.DistanceMeters = geospatial.Haversine(center.Latitude, center.Longitude, c.Latitude, c.Longitude)
		} else {
			r.DistanceMeters = domain.UnmappableDistance
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceMeters < out[j].DistanceMeters
	})
	return out
}
