package usecases_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/samirrijal/campfinder/internal/core/domain"
	"github.com/samirrijal/campfinder/internal/core/ports"
)

// --- Mock Geocoder ---

type mockGeocoder struct {
	geocodeFn func(ctx context.Context, query string, limit int) ([]domain.Coordinate, error)
	calls     atomic.Int32
	lastQuery atomic.Value
}

func (m *mockGeocoder) Geocode(ctx context.Context, query string, limit int) ([]domain.Coordinate, error) {
	m.calls.Add(1)
	m.lastQuery.Store(query)
	if m.geocodeFn != nil {
		return m.geocodeFn(ctx, query, limit)
	}
	return []domain.Coordinate{{Latitude: 52.37, Longitude: 4.89}}, nil
}

func (m *mockGeocoder) query() string {
	q, _ := m.lastQuery.Load().(string)
	return q
}

// --- Mock ListingTransport ---

type mockTransport struct {
	fetchFn func(ctx context.Context, q ports.ListingQuery) (*ports.RawResponse, error)
	calls   atomic.Int32
}

func (m *mockTransport) FetchListings(ctx context.Context, q ports.ListingQuery) (*ports.RawResponse, error) {
	m.calls.Add(1)
	if m.fetchFn != nil {
		return m.fetchFn(ctx, q)
	}
	return jsonResponse(listingJSON(
		listingObj{ID: "a", Lat: 52.0, Lng: 5.0},
		listingObj{ID: "b", Lat: 53.0, Lng: 6.0},
	)), nil
}

type listingObj struct {
	ID         string
	Lat        float64
	Lng        float64
	Code       int
	NoGeometry bool
}

func listingJSON(objs ...listingObj) string {
	parts := make([]string, 0, len(objs))
	for _, o := range objs {
		geom := fmt.Sprintf(`"geometry":{"type":"Point","coordinates":[%g,%g]}`, o.Lng, o.Lat)
		if o.NoGeometry {
			geom = `"geometry":null`
		}
		parts = append(parts, fmt.Sprintf(
			`{"id":%q,%s,"properties":{"name":"Camping %s","city":"Utrecht","address":"Dorpsstraat 1","type_camping":%d}}`,
			o.ID, geom, strings.ToUpper(o.ID), o.Code,
		))
	}
	return `{"objects":[` + strings.Join(parts, ",") + `]}`
}

func jsonResponse(body string) *ports.RawResponse {
	return &ports.RawResponse{StatusCode: 200, ContentType: "application/json; charset=utf-8", Body: []byte(body)}
}

// --- Mock Authenticator ---

type mockAuth struct {
	authenticated bool
	unauthorized  atomic.Int32
}

func (m *mockAuth) Token() string { return "token" }

func (m *mockAuth) IsAuthenticated(ctx context.Context) bool { return m.authenticated }

func (m *mockAuth) OnUnauthorized(ctx context.Context) { m.unauthorized.Add(1) }

// --- Mock DetailProvider ---

type mockDetails struct {
	fetchFn func(ctx context.Context, objectID string) (*domain.DetailContent, error)
	calls   atomic.Int32
}

func (m *mockDetails) FetchDetail(ctx context.Context, objectID string) (*domain.DetailContent, error) {
	m.calls.Add(1)
	if m.fetchFn != nil {
		return m.fetchFn(ctx, objectID)
	}
	return &domain.DetailContent{ContentType: "text/html", Body: []byte("<div>" + objectID + "</div>")}, nil
}

// --- In-memory KeyValueStore ---

type memKV struct {
	mu     sync.Mutex
	data   map[string][]byte
	setErr error
	sets   int
}

func newMemKV() *memKV { return &memKV{data: map[string][]byte{}} }

func (m *memKV) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *memKV) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Recording EventPublisher ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, ev domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) ofType(t domain.EventType) []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.Event
	for _, ev := range p.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
