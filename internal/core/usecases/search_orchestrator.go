package usecases

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/campfinder/internal/core/domain"
	"github.com/samirrijal/campfinder/internal/core/ports"
	"github.com/samirrijal/campfinder/internal/pkg/geospatial"
	"github.com/samirrijal/campfinder/internal/pkg/metrics"
)

// minPositionChangeMeters is the device movement below which a new position
// fix is ignored.
const minPositionChangeMeters = 100.0

// SearchOrchestrator is the top-level search use case. At most one search is
// in flight at a time; overlapping calls are dropped.
type SearchOrchestrator struct {
	resolver  *GeoResolver
	fetcher   *ListingFetcher
	cache     *ResultCache
	filters   *FilterStore
	publisher ports.EventPublisher
	radius    float64

	searching atomic.Bool

	mu         sync.RWMutex
	position   *domain.Coordinate
	lastQuery  string
	lastResult *domain.SearchResult
}

// NewSearchOrchestrator wires the search pipeline. publisher may be nil.
func NewSearchOrchestrator(
	resolver *GeoResolver,
	fetcher *ListingFetcher,
	cache *ResultCache,
	filters *FilterStore,
	publisher ports.EventPublisher,
	radiusMeters float64,
) *SearchOrchestrator {
	if radiusMeters <= 0 {
		radiusMeters = DefaultListingRadius
	}
	return &SearchOrchestrator{
		resolver:  resolver,
		fetcher:   fetcher,
		cache:     cache,
		filters:   filters,
		publisher: publisher,
		radius:    radiusMeters,
	}
}

// Search resolves query (or the device position), ranks the cached records
// against it, and publishes the result. The network is used when forced,
// when the cache is empty, or when the filter set changed since the last
// fetch. On failure the previous result stays current.
//
// A call made while another search is running returns ErrSearchInProgress
// without side effects.
func (o *SearchOrchestrator) Search(ctx context.Context, query string, forceNetwork bool) (*domain.SearchResult, error) {
	if !o.searching.CompareAndSwap(false, true) {
		metrics.Searches.WithLabelValues("dropped").Inc()
		slog.DebugContext(ctx, "search dropped, another is in flight", "query", query)
		return nil, domain.ErrSearchInProgress
	}
	defer o.searching.Store(false)

	ctx, span := tracer.Start(ctx, "SearchOrchestrator.Search")
	defer span.End()
	span.SetAttributes(attribute.String("query", query), attribute.Bool("force_network", forceNetwork))

	center, err := o.resolver.Resolve(ctx, query, o.Position())
	if err != nil {
		span.RecordError(err)
		return nil, o.fail(ctx, query, err)
	}

	filters, gen := o.filters.Snapshot(ctx)
	useNetwork := forceNetwork || o.filters.Dirty() || !o.cache.IsPopulated(ctx)

	var (
		records domain.ResultSet
		source  string
	)
	if useNetwork {
		records, err = o.fetcher.Fetch(ctx, center, o.radius, filters)
		if err != nil {
			span.RecordError(err)
			return nil, o.fail(ctx, query, err)
		}
		if err := o.cache.Store(ctx, records); err != nil {
			slog.WarnContext(ctx, "result cache not updated", "records", len(records), "error", err)
		}
		o.filters.MarkFetched(gen)
		source = domain.SourceNetwork
	} else {
		records = o.cache.Load(ctx)
		source = domain.SourceCache
	}

	result := &domain.SearchResult{
		Query:       query,
		Center:      center,
		Records:     Rank(records, center).Renderable(),
		Source:      source,
		CompletedAt: time.Now().UTC(),
	}

	o.mu.Lock()
	o.lastQuery = query
	o.lastResult = result
	o.mu.Unlock()

	metrics.Searches.WithLabelValues(source).Inc()
	span.SetAttributes(attribute.String("source", source), attribute.Int("records", len(result.Records)))
	slog.InfoContext(ctx, "search completed",
		"query", query,
		"center_lat", center.Latitude,
		"center_lng", center.Longitude,
		"source", source,
		"records", len(result.Records),
	)

	o.publish(ctx, domain.Event{Type: domain.EventResults, Result: cloneResult(result), At: result.CompletedAt})
	return cloneResult(result), nil
}

// Refresh re-runs the last query. It is used to re-render after leaving the
// detail view and after filter changes.
func (o *SearchOrchestrator) Refresh(ctx context.Context) (*domain.SearchResult, error) {
	return o.Search(ctx, o.LastQuery(), false)
}

// ApplyFilters replaces the active filter set and searches again. The change
// forces a network fetch even if the search is dropped now.
func (o *SearchOrchestrator) ApplyFilters(ctx context.Context, ids []string) (*domain.SearchResult, error) {
	o.filters.Apply(ctx, ids)
	return o.Search(ctx, o.LastQuery(), true)
}

// ResetFilters clears the active filter set and searches again.
func (o *SearchOrchestrator) ResetFilters(ctx context.Context) (*domain.SearchResult, error) {
	o.filters.Reset(ctx)
	return o.Search(ctx, o.LastQuery(), true)
}

// ActiveFilters returns the current filter set.
func (o *SearchOrchestrator) ActiveFilters(ctx context.Context) []string {
	return o.filters.Current(ctx)
}

// UpdatePosition records a device position fix. Fixes within 100 m of the
// previous one are ignored; the return value reports whether it was taken.
func (o *SearchOrchestrator) UpdatePosition(c domain.Coordinate) bool {
	if !c.Valid() {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if p := o.position; p != nil &&
		geospatial.Within(p.Latitude, p.Longitude, c.Latitude, c.Longitude, minPositionChangeMeters) {
		return false
	}
	o.position = &c
	return true
}

// Position returns the last accepted device position, or nil.
func (o *SearchOrchestrator) Position() *domain.Coordinate {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.position == nil {
		return nil
	}
	c := *o.position
	return &c
}

// LastQuery returns the query of the last successful search.
func (o *SearchOrchestrator) LastQuery() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastQuery
}

// LastResult returns the currently rendered result, or nil before the first
// successful search.
func (o *SearchOrchestrator) LastResult() *domain.SearchResult {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return cloneResult(o.lastResult)
}

// Searching reports whether a search is in flight.
func (o *SearchOrchestrator) Searching() bool {
	return o.searching.Load()
}

func (o *SearchOrchestrator) fail(ctx context.Context, query string, err error) error {
	kind := domain.KindOf(err)
	metrics.SearchErrors.WithLabelValues(string(kind)).Inc()
	if domain.UserCorrectable(err) {
		slog.InfoContext(ctx, "search failed", "query", query, "kind", kind, "error", err)
	} else {
		slog.WarnContext(ctx, "search failed", "query", query, "kind", kind, "error", err)
	}
	o.publish(ctx, domain.NewErrorEvent(err))
	return err
}

func (o *SearchOrchestrator) publish(ctx context.Context, ev domain.Event) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.Publish(ctx, ev); err != nil {
		slog.WarnContext(ctx, "publish event failed", "type", ev.Type, "error", err)
	}
}

func cloneResult(r *domain.SearchResult) *domain.SearchResult {
	if r == nil {
		return nil
	}
	c := *r
	c.Records = r.Records.Clone()
	return &c
}
