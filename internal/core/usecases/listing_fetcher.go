package usecases

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/campfinder/internal/core/domain"
	"github.com/samirrijal/campfinder/internal/core/ports"
	"github.com/samirrijal/campfinder/internal/pkg/metrics"
)

// DefaultListingRadius is large enough that one fetch serves many local
// re-rankings.
const (
	DefaultListingRadius = 50000.0
	DefaultListingLimit  = 1500
)

// ListingFetcher queries the listing service and normalizes its payload.
type ListingFetcher struct {
	transport ports.ListingTransport
	auth      ports.Authenticator
	limit     int
}

// NewListingFetcher creates a ListingFetcher. auth may be nil.
func NewListingFetcher(transport ports.ListingTransport, auth ports.Authenticator, limit int) *ListingFetcher {
	if limit <= 0 {
		limit = DefaultListingLimit
	}
	return &ListingFetcher{transport: transport, auth: auth, limit: limit}
}

// Fetch returns the normalized records around center. Records with exclusion
// code 3 are dropped here already.
func (f *ListingFetcher) Fetch(ctx context.Context, center domain.Coordinate, radiusMeters float64, filters []string) (domain.ResultSet, error) {
	ctx, span := tracer.Start(ctx, "ListingFetcher.Fetch")
	defer span.End()
	span.SetAttributes(
		attribute.Float64("center.lat", center.Latitude),
		attribute.Float64("center.lng", center.Longitude),
		attribute.Int("filters", len(filters)),
	)

	if radiusMeters <= 0 {
		radiusMeters = DefaultListingRadius
	}

	start := time.Now()
	resp, err := f.transport.FetchListings(ctx, ports.ListingQuery{
		Center:       center,
		RadiusMeters: radiusMeters,
		Limit:        f.limit,
		Filters:      filters,
	})
	metrics.ObserveUpstream("listings", start)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("fetch listings: %w: %w", domain.ErrUpstreamUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if f.auth != nil {
			f.auth.OnUnauthorized(ctx)
		}
		return nil, fmt.Errorf("fetch listings: %w", domain.ErrUpstreamUnauthorized)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch listings: status %d: %w", resp.StatusCode, domain.ErrUpstreamUnavailable)
	}

	records, err := decodeListings(ctx, resp)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("fetch listings: %w", err)
	}
	span.SetAttributes(attribute.Int("records", len(records)))
	slog.DebugContext(ctx, "listings fetched", "center", center.String(), "records", len(records))
	return records, nil
}

// listingPayload is the upstream {objects: [...]} document.
type listingPayload struct {
	Objects []json.RawMessage `json:"objects"`
}

type listingObject struct {
	ID       flexString `json:"id"`
	Geometry *struct {
		Coordinates []flexFloat `json:"coordinates"`
	} `json:"geometry"`
	Properties *struct {
		Name        string  `json:"name"`
		City        string  `json:"city"`
		Address     string  `json:"address"`
		TypeCamping flexInt `json:"type_camping"`
	} `json:"properties"`
}

// decodeListings fails only when the document itself is unusable. Objects
// that do not decode are skipped one by one.
func decodeListings(ctx context.Context, resp *ports.RawResponse) (domain.ResultSet, error) {
	body := bytes.TrimSpace(resp.Body)
	if looksLikeHTML(body) {
		return nil, fmt.Errorf("html body instead of json: %w", domain.ErrMalformedResponse)
	}
	if ct := resp.ContentType; ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || !(mt == "application/json" || strings.HasSuffix(mt, "+json")) {
			return nil, fmt.Errorf("content type %q: %w", ct, domain.ErrMalformedResponse)
		}
	}

	var payload listingPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode listings: %w: %w", domain.ErrMalformedResponse, err)
	}

	out := make(domain.ResultSet, 0, len(payload.Objects))
	seen := make(map[string]struct{}, len(payload.Objects))
	for i, raw := range payload.Objects {
		var o listingObject
		if err := json.Unmarshal(raw, &o); err != nil {
			metrics.SkippedListings.WithLabelValues("malformed").Inc()
			slog.DebugContext(ctx, "skipping listing object", "index", i, "error", err)
			continue
		}
		rec, ok := normalizeListing(o)
		if !ok {
			metrics.SkippedListings.WithLabelValues("missing_id").Inc()
			continue
		}
		if rec.Excluded() {
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		seen[rec.ID] = struct{}{}
		out = append(out, rec)
	}
	return out, nil
}

// normalizeListing maps one upstream object to a strict record. Missing
// properties default to empty strings and exclusion code 0; a missing, null or
// out-of-range geometry leaves the record unmappable.
func normalizeListing(o listingObject) (domain.ListingRecord, bool) {
	id := strings.TrimSpace(string(o.ID))
	if id == "" {
		return domain.ListingRecord{}, false
	}
	rec := domain.ListingRecord{ID: id}
	if p := o.Properties; p != nil {
		rec.Name = strings.TrimSpace(p.Name)
		rec.City = strings.TrimSpace(p.City)
		rec.Address = strings.TrimSpace(p.Address)
		rec.ExclusionCode = int(p.TypeCamping)
	}
	if g := o.Geometry; g != nil && len(g.Coordinates) >= 2 {
		lng, lat := g.Coordinates[0], g.Coordinates[1]
		c := domain.Coordinate{Latitude: lat.value, Longitude: lng.value}
		if lng.set && lat.set && c.Valid() {
			rec.Coordinate = &c
		}
	}
	return rec, true
}

func looksLikeHTML(body []byte) bool {
	if len(body) == 0 {
		return false
	}
	head := body
	if len(head) > 64 {
		head = head[:64]
	}
	lower := bytes.ToLower(head)
	return bytes.HasPrefix(lower, []byte("<!doctype")) ||
		bytes.HasPrefix(lower, []byte("<html")) ||
		bytes.Contains(body, []byte("Internal Server Error"))
}

// flexString accepts JSON strings and numbers.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

// flexInt accepts numbers, numeric strings and null (zero).
type flexInt int

func (i *flexInt) UnmarshalJSON(b []byte) error {
	var f flexFloat
	if err := f.UnmarshalJSON(b); err != nil {
		return err
	}
	*i = flexInt(f.value)
	return nil
}

// flexFloat accepts numbers and numeric strings. null and "" leave it unset.
type flexFloat struct {
	value float64
	set   bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = flexFloat{}
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", b)
	}
	*f = flexFloat{value: v, set: true}
	return nil
}
