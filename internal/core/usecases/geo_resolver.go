package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samirrijal/campfinder/internal/core/domain"
	"github.com/samirrijal/campfinder/internal/core/ports"
	"github.com/samirrijal/campfinder/internal/pkg/metrics"
)

// GeoResolver turns a free-text query or the last device position into a
// search center.
type GeoResolver struct {
	geocoder    ports.Geocoder
	places      *PlaceIndex
	countryHint string
	fallback    domain.Coordinate
}

// NewGeoResolver creates a GeoResolver. countryHint is appended to queries
// that exactly match a local place name; an empty hint disables it.
func NewGeoResolver(geocoder ports.Geocoder, places *PlaceIndex, countryHint string) *GeoResolver {
	return &GeoResolver{
		geocoder:    geocoder,
		places:      places,
		countryHint: countryHint,
		fallback:    domain.DefaultCenter,
	}
}

// Resolve returns the coordinate for query. With an empty query it returns
// last when known and the country centroid otherwise. A query that the
// geocoder cannot place fails with ErrGeocodeNotFound; there is no silent
// fallback in that case.
func (r *GeoResolver) Resolve(ctx context.Context, query string, last *domain.Coordinate) (domain.Coordinate, error) {
	name := StripRegion(query)
	if name == "" {
		if last != nil && last.Valid() {
			return *last, nil
		}
		return r.fallback, nil
	}

	ctx, span := tracer.Start(ctx, "GeoResolver.Resolve")
	defer span.End()

	q := name
	if place, ok := r.places.Exact(name); ok && r.countryHint != "" {
		q = place.Name + ", " + r.countryHint
	}

	start := time.Now()
	results, err := r.geocoder.Geocode(ctx, q, 1)
	metrics.ObserveUpstream("geocoder", start)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrGeocodeNotFound) {
			return domain.Coordinate{}, err
		}
		return domain.Coordinate{}, fmt.Errorf("geocode %q: %w: %w", q, domain.ErrGeocodeTransport, err)
	}
	for _, c := range results {
		if c.Valid() {
			slog.DebugContext(ctx, "geocoded", "query", q, "lat", c.Latitude, "lng", c.Longitude)
			return c, nil
		}
	}
	return domain.Coordinate{}, fmt.Errorf("geocode %q: %w", strings.TrimSpace(q), domain.ErrGeocodeNotFound)
}
