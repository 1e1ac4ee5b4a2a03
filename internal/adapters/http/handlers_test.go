package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	handler "github.com/samirrijal/campfinder/internal/adapters/http"
	"github.com/samirrijal/campfinder/internal/adapters/memstore"
	"github.com/samirrijal/campfinder/internal/core/domain"
	"github.com/samirrijal/campfinder/internal/core/ports"
	"github.com/samirrijal/campfinder/internal/core/usecases"
)

// ---- Mocks ----

type mockGeocoder struct {
	geocodeFn func(ctx context.Context, query string, limit int) ([]domain.Coordinate, error)
}

func (m *mockGeocoder) Geocode(ctx context.Context, query string, limit int) ([]domain.Coordinate, error) {
	if m.geocodeFn != nil {
		return m.geocodeFn(ctx, query, limit)
	}
	return []domain.Coordinate{{Latitude: 52.37, Longitude: 4.89}}, nil
}

type mockTransport struct {
	mu      sync.Mutex
	queries []ports.ListingQuery
	fetchFn func(ctx context.Context, q ports.ListingQuery) (*ports.RawResponse, error)
}

func (m *mockTransport) FetchListings(ctx context.Context, q ports.ListingQuery) (*ports.RawResponse, error) {
	m.mu.Lock()
	m.queries = append(m.queries, q)
	m.mu.Unlock()
	if m.fetchFn != nil {
		return m.fetchFn(ctx, q)
	}
	body := `{"objects":[` +
		`{"id":"far","geometry":{"coordinates":[6.56,53.21]},"properties":{"name":"Camping Noord","city":"Groningen","type_camping":0}},` +
		`{"id":"near","geometry":{"coordinates":[4.90,52.36]},"properties":{"name":"Camping Zeeburg","city":"Amsterdam","type_camping":0}},` +
		`{"id":"hidden","geometry":{"coordinates":[4.89,52.37]},"properties":{"name":"Hidden","type_camping":3}}` +
		`]}`
	return &ports.RawResponse{StatusCode: 200, ContentType: "application/json", Body: []byte(body)}, nil
}

func (m *mockTransport) lastQuery() ports.ListingQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries[len(m.queries)-1]
}

type mockDetails struct {
	fetchFn func(ctx context.Context, id string) (*domain.DetailContent, error)
}

func (m *mockDetails) FetchDetail(ctx context.Context, id string) (*domain.DetailContent, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx, id)
	}
	return &domain.DetailContent{ContentType: "text/html", Body: []byte("<h1>" + id + "</h1>")}, nil
}

// mockSessions implements both ports.Authenticator and handler.Sessions.
type mockSessions struct {
	authenticated bool
	loginFn       func(ctx context.Context, email, password string) (string, error)
	loggedOut     bool
}

func (m *mockSessions) Token() string                            { return "tok" }
func (m *mockSessions) IsAuthenticated(ctx context.Context) bool { return m.authenticated }
func (m *mockSessions) OnUnauthorized(ctx context.Context)       { m.authenticated = false }
func (m *mockSessions) Logout(ctx context.Context)               { m.loggedOut = true }
func (m *mockSessions) Login(ctx context.Context, email, password string) (string, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	m.authenticated = true
	return "welcome", nil
}

// ---- Helpers ----

type fixture struct {
	app       *fiber.App
	deps      *handler.Dependencies
	geocoder  *mockGeocoder
	transport *mockTransport
	details   *mockDetails
	sessions  *mockSessions
}

func setupApp() *fixture {
	f := &fixture{
		geocoder:  &mockGeocoder{},
		transport: &mockTransport{},
		details:   &mockDetails{},
		sessions:  &mockSessions{authenticated: true},
	}

	kv := memstore.New(0)
	places := usecases.NewPlaceIndex([]domain.Place{
		{Name: "Amsterdam", Region: "Noord-Holland"},
		{Name: "Amstelveen", Region: "Noord-Holland"},
		{Name: "Utrecht", Region: "Utrecht"},
	})
	resolver := usecases.NewGeoResolver(f.geocoder, places, "Nederland")
	fetcher := usecases.NewListingFetcher(f.transport, f.sessions, 0)
	cache := usecases.NewResultCache(kv)
	filters := usecases.NewFilterStore(kv)
	search := usecases.NewSearchOrchestrator(resolver, fetcher, cache, filters, nil, 0)
	view := usecases.NewViewStateMachine(f.details, nil)

	f.deps = &handler.Dependencies{
		App:      usecases.NewApp(places, search, view, cache, filters, f.sessions, kv, nil),
		Sessions: f.sessions,
	}
	f.app = fiber.New()
	handler.SetupRoutes(f.app, f.deps)
	return f
}

func doRequest(t *testing.T, app *fiber.App, method, path, body string) (int, []byte, map[string]string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	headers := map[string]string{}
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}
	return resp.StatusCode, data, headers
}

type resultPage struct {
	Query      string                 `json:"query"`
	Source     string                 `json:"source"`
	Records    []domain.ListingRecord `json:"records"`
	Pagination handler.Pagination     `json:"pagination"`
}

func decodePage(t *testing.T, data []byte) resultPage {
	t.Helper()
	var page resultPage
	require.NoError(t, json.Unmarshal(data, &page))
	return page
}

func decodeError(t *testing.T, data []byte) handler.APIError {
	t.Helper()
	var apiErr handler.APIError
	require.NoError(t, json.Unmarshal(data, &apiErr))
	return apiErr
}

// ---- Tests ----

func TestHealth(t *testing.T) {
	f := setupApp()
	status, body, _ := doRequest(t, f.app, "GET", "/v1/health", "")
	assert.Equal(t, 200, status)
	assert.Contains(t, string(body), `"healthy"`)
}

func TestReady_WithoutExternalDeps(t *testing.T) {
	f := setupApp()
	status, body, _ := doRequest(t, f.app, "GET", "/v1/ready", "")
	assert.Equal(t, 200, status)

	var resp struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, "in-memory", resp.Checks["store"])
	assert.Equal(t, "ok", resp.Checks["places"])
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("disk gone") }

func TestReady_StoreDown(t *testing.T) {
	f := setupApp()
	f.deps.Store = failingPinger{}
	status, body, _ := doRequest(t, f.app, "GET", "/v1/ready", "")
	assert.Equal(t, 503, status)
	assert.Contains(t, string(body), "disk gone")
}

func TestSuggest(t *testing.T) {
	f := setupApp()

	status, body, headers := doRequest(t, f.app, "GET", "/v1/suggest?q=ams", "")
	assert.Equal(t, 200, status)
	var resp struct {
		Suggestions []string `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.ElementsMatch(t, []string{"Amsterdam (Noord-Holland)", "Amstelveen (Noord-Holland)"}, resp.Suggestions)
	assert.Equal(t, "public, max-age=3600", headers["Cache-Control"])

	_, body, _ = doRequest(t, f.app, "GET", "/v1/suggest?q=a", "")
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Empty(t, resp.Suggestions)
}

func TestSearch_RanksAndPaginates(t *testing.T) {
	f := setupApp()

	status, body, headers := doRequest(t, f.app, "POST", "/v1/search?limit=1", `{"query":"Amsterdam (Noord-Holland)"}`)
	require.Equal(t, 200, status, string(body))

	page := decodePage(t, body)
	assert.Equal(t, domain.SourceNetwork, page.Source)
	assert.Equal(t, 2, page.Pagination.Total)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "near", page.Records[0].ID)
	assert.Empty(t, headers["Link"], "POST pages carry no Link header")

	status, body, _ = doRequest(t, f.app, "POST", "/v1/search?offset=1&limit=1", `{"query":"Amsterdam"}`)
	require.Equal(t, 200, status)
	page = decodePage(t, body)
	assert.Equal(t, domain.SourceCache, page.Source)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "far", page.Records[0].ID)

	status, body, headers = doRequest(t, f.app, "GET", "/v1/results?limit=1", "")
	require.Equal(t, 200, status, string(body))
	assert.Contains(t, headers["Link"], `</v1/results?offset=1&limit=1>; rel="next"`)
	assert.Contains(t, headers["Link"], `rel="last"`)
}

func TestSearch_GeocodeNotFound(t *testing.T) {
	f := setupApp()
	f.geocoder.geocodeFn = func(ctx context.Context, q string, limit int) ([]domain.Coordinate, error) {
		return nil, nil
	}

	status, body, _ := doRequest(t, f.app, "POST", "/v1/search", `{"query":"Atlantis"}`)
	assert.Equal(t, 404, status)
	assert.Equal(t, string(domain.KindGeocodeNotFound), decodeError(t, body).Code)
}

func TestSearch_UpstreamUnauthorized(t *testing.T) {
	f := setupApp()
	f.transport.fetchFn = func(ctx context.Context, q ports.ListingQuery) (*ports.RawResponse, error) {
		return &ports.RawResponse{StatusCode: 401, ContentType: "application/json", Body: []byte(`{}`)}, nil
	}

	status, body, _ := doRequest(t, f.app, "POST", "/v1/search", `{"query":"Utrecht"}`)
	assert.Equal(t, 401, status)
	assert.Equal(t, string(domain.KindUpstreamUnauthorized), decodeError(t, body).Code)
	assert.False(t, f.sessions.authenticated)
}

func TestSearch_UpstreamHTML(t *testing.T) {
	f := setupApp()
	f.transport.fetchFn = func(ctx context.Context, q ports.ListingQuery) (*ports.RawResponse, error) {
		return &ports.RawResponse{StatusCode: 200, ContentType: "text/html", Body: []byte("<!DOCTYPE html><html></html>")}, nil
	}

	status, body, _ := doRequest(t, f.app, "POST", "/v1/search", `{"query":"Utrecht"}`)
	assert.Equal(t, 502, status)
	assert.Equal(t, string(domain.KindMalformedResponse), decodeError(t, body).Code)
}

func TestSearch_UseLocation(t *testing.T) {
	f := setupApp()

	status, _, _ := doRequest(t, f.app, "POST", "/v1/search", `{"use_location":true}`)
	assert.Equal(t, 400, status)

	status, body, _ := doRequest(t, f.app, "POST", "/v1/search", `{"use_location":true,"lat":53.2,"lng":6.5}`)
	require.Equal(t, 200, status, string(body))
	page := decodePage(t, body)
	require.NotEmpty(t, page.Records)
	assert.Equal(t, "far", page.Records[0].ID)

	q := f.transport.lastQuery()
	assert.InDelta(t, 53.2, q.Center.Latitude, 1e-9)
}

func TestResults_ETag(t *testing.T) {
	f := setupApp()

	status, _, _ := doRequest(t, f.app, "GET", "/v1/results", "")
	assert.Equal(t, 404, status)

	status, _, _ = doRequest(t, f.app, "POST", "/v1/search", `{"query":"Amsterdam"}`)
	require.Equal(t, 200, status)

	status, body, headers := doRequest(t, f.app, "GET", "/v1/results", "")
	require.Equal(t, 200, status)
	assert.Len(t, decodePage(t, body).Records, 2)
	etag := headers["Etag"]
	require.NotEmpty(t, etag)

	req := httptest.NewRequest("GET", "/v1/results", nil)
	req.Header.Set("If-None-Match", etag)
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 304, resp.StatusCode)
}

func TestFilters_ForceNetwork(t *testing.T) {
	f := setupApp()

	status, _, _ := doRequest(t, f.app, "POST", "/v1/search", `{"query":"Amsterdam"}`)
	require.Equal(t, 200, status)

	status, body, _ := doRequest(t, f.app, "PUT", "/v1/filters", `{"ids":["wifi"," pool","wifi"]}`)
	require.Equal(t, 200, status, string(body))
	assert.Equal(t, []string{"pool", "wifi"}, f.transport.lastQuery().Filters)
	assert.Len(t, f.transport.queries, 2)

	_, body, _ = doRequest(t, f.app, "GET", "/v1/filters", "")
	assert.JSONEq(t, `{"ids":["pool","wifi"]}`, string(body))

	status, _, _ = doRequest(t, f.app, "DELETE", "/v1/filters", "")
	require.Equal(t, 200, status)
	assert.Empty(t, f.transport.lastQuery().Filters)
	assert.Len(t, f.transport.queries, 3)
}

func TestView_ToggleDetailBack(t *testing.T) {
	f := setupApp()
	type viewResp struct {
		View       domain.ViewState       `json:"view"`
		Visibility domain.Visibility      `json:"visibility"`
		Detail     *domain.DetailSnapshot `json:"detail"`
	}
	decode := func(data []byte) viewResp {
		var v viewResp
		require.NoError(t, json.Unmarshal(data, &v))
		return v
	}

	_, body, _ := doRequest(t, f.app, "GET", "/v1/view", "")
	assert.Equal(t, domain.ViewMap, decode(body).View.Kind)

	_, body, _ = doRequest(t, f.app, "POST", "/v1/view/toggle", "")
	assert.Equal(t, domain.Visibility{List: true}, decode(body).Visibility)

	status, body, _ := doRequest(t, f.app, "POST", "/v1/view/detail/abc", "")
	require.Equal(t, 202, status)
	v := decode(body)
	assert.Equal(t, domain.DetailView("abc"), v.View)
	require.NotNil(t, v.Detail)

	status, body, _ = doRequest(t, f.app, "GET", "/v1/detail/abc?wait=true", "")
	require.Equal(t, 200, status, string(body))
	var snap domain.DetailSnapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Equal(t, domain.DetailRendered, snap.Status)
	assert.Equal(t, "<h1>abc</h1>", string(snap.Content.Body))

	status, _, _ = doRequest(t, f.app, "GET", "/v1/detail/other", "")
	assert.Equal(t, 404, status)

	_, body, _ = doRequest(t, f.app, "POST", "/v1/view/back", "")
	assert.Equal(t, domain.ListView, decode(body).View)

	_, body, _ = doRequest(t, f.app, "POST", "/v1/view/forward", "")
	assert.Equal(t, domain.DetailView("abc"), decode(body).View)
}

func TestDetail_LoadFailure(t *testing.T) {
	f := setupApp()
	f.details.fetchFn = func(ctx context.Context, id string) (*domain.DetailContent, error) {
		return nil, fmt.Errorf("upstream 500: %w", domain.ErrDetailLoad)
	}

	status, _, _ := doRequest(t, f.app, "POST", "/v1/view/detail/abc", "")
	require.Equal(t, 202, status)

	status, body, _ := doRequest(t, f.app, "GET", "/v1/detail/abc?wait=true", "")
	assert.Equal(t, 502, status)
	assert.Equal(t, string(domain.KindDetailLoad), decodeError(t, body).Code)
}

func TestOpenDetail_BlankID(t *testing.T) {
	f := setupApp()
	status, _, _ := doRequest(t, f.app, "POST", "/v1/view/detail/%20", "")
	assert.Equal(t, 400, status)
}

func TestPosition(t *testing.T) {
	f := setupApp()

	status, _, _ := doRequest(t, f.app, "PUT", "/v1/position", `{"lat":91,"lng":0}`)
	assert.Equal(t, 400, status)

	status, body, _ := doRequest(t, f.app, "PUT", "/v1/position", `{"lat":52.0,"lng":5.0}`)
	require.Equal(t, 200, status)
	assert.Contains(t, string(body), `"updated":true`)

	_, body, _ = doRequest(t, f.app, "PUT", "/v1/position", `{"lat":52.0001,"lng":5.0}`)
	assert.Contains(t, string(body), `"updated":false`)
}

func TestLogin(t *testing.T) {
	f := setupApp()
	f.sessions.authenticated = false
	f.sessions.loginFn = func(ctx context.Context, email, password string) (string, error) {
		if password != "secret" {
			return "", errors.New("login failed: bad credentials")
		}
		f.sessions.authenticated = true
		return "welcome back", nil
	}

	status, _, _ := doRequest(t, f.app, "POST", "/v1/session/login", `{"email":"a@b.nl"}`)
	assert.Equal(t, 400, status)

	status, _, _ = doRequest(t, f.app, "POST", "/v1/session/login", `{"email":"a@b.nl","password":"nope"}`)
	assert.Equal(t, 401, status)

	status, body, _ := doRequest(t, f.app, "POST", "/v1/session/login", `{"email":"a@b.nl","password":"secret"}`)
	require.Equal(t, 200, status, string(body))
	var resp struct {
		Message string               `json:"message"`
		Start   usecases.StartReport `json:"start"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "welcome back", resp.Message)
	assert.True(t, resp.Start.Authenticated)
	assert.True(t, resp.Start.ShowOnboarding)
	require.NotNil(t, resp.Start.Result)
	assert.Equal(t, domain.SourceNetwork, resp.Start.Result.Source)

	_, body, _ = doRequest(t, f.app, "GET", "/v1/session", "")
	assert.JSONEq(t, `{"authenticated":true}`, string(body))

	status, _, _ = doRequest(t, f.app, "DELETE", "/v1/session", "")
	assert.Equal(t, 204, status)
	assert.True(t, f.sessions.loggedOut)
}

func TestStart_Unauthenticated(t *testing.T) {
	f := setupApp()
	f.sessions.authenticated = false

	status, body, _ := doRequest(t, f.app, "POST", "/v1/start", "")
	assert.Equal(t, 401, status)
	assert.Contains(t, string(body), `"authenticated":false`)
}

func TestGraphQL_SuggestAndSearch(t *testing.T) {
	f := setupApp()

	status, body, _ := doRequest(t, f.app, "POST", "/graphql", `{"query":"{ suggest(q: \"utr\") }"}`)
	require.Equal(t, 200, status)
	assert.JSONEq(t, `{"data":{"suggest":["Utrecht (Utrecht)"]}}`, string(body))

	status, body, _ = doRequest(t, f.app, "POST", "/graphql",
		`{"query":"mutation { search(query: \"Amsterdam\") { source records { id coordinate { navigation_url } } } }"}`)
	require.Equal(t, 200, status)

	var resp struct {
		Data struct {
			Search struct {
				Source  string `json:"source"`
				Records []struct {
					ID         string `json:"id"`
					Coordinate struct {
						NavigationURL string `json:"navigation_url"`
					} `json:"coordinate"`
				} `json:"records"`
			} `json:"search"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, domain.SourceNetwork, resp.Data.Search.Source)
	require.Len(t, resp.Data.Search.Records, 2)
	assert.Equal(t, "near", resp.Data.Search.Records[0].ID)
	assert.Equal(t, "https://www.google.com/maps/dir/?api=1&destination=52.36,4.9",
		resp.Data.Search.Records[0].Coordinate.NavigationURL)
}

func TestSecurityHeaders(t *testing.T) {
	f := setupApp()
	_, _, headers := doRequest(t, f.app, "GET", "/v1/health", "")
	assert.Equal(t, "nosniff", headers["X-Content-Type-Options"])
	assert.NotEmpty(t, headers["X-Request-Id"])
}
