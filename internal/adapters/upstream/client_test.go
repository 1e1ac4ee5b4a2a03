package upstream_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/campfinder/internal/adapters/upstream"
	"github.com/samirrijal/campfinder/internal/core/domain"
	"github.com/samirrijal/campfinder/internal/core/ports"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func TestFetchListings_BuildsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/objects", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "0", q.Get("page"))
		assert.Equal(t, "52.1326", q.Get("lat"))
		assert.Equal(t, "5.2913", q.Get("lng"))
		assert.Equal(t, "50000", q.Get("distance"))
		assert.Equal(t, "1500", q.Get("limit"))
		assert.Equal(t, []string{"12", "7"}, q["filter[facilities][]"])
		assert.Equal(t, "sess-1", r.Header.Get(upstream.SessionHeader))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"objects":[]}`)
	}))
	defer srv.Close()

	c := upstream.New(upstream.Config{BaseURL: srv.URL}, staticToken("sess-1"))
	resp, err := c.FetchListings(context.Background(), ports.ListingQuery{
		Center:       domain.DefaultCenter,
		RadiusMeters: 50000,
		Limit:        1500,
		Filters:      []string{"12", "7"},
	})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "application/json", resp.ContentType)
	assert.JSONEq(t, `{"objects":[]}`, string(resp.Body))
}

func TestFetchListings_StatusIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get(upstream.SessionHeader))
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := upstream.New(upstream.Config{BaseURL: srv.URL}, staticToken(""))
	resp, err := c.FetchListings(context.Background(), ports.ListingQuery{Center: domain.DefaultCenter})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestFetchListings_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := upstream.New(upstream.Config{BaseURL: srv.URL}, nil)
	_, err := c.FetchListings(context.Background(), ports.ListingQuery{Center: domain.DefaultCenter})
	assert.Error(t, err)
}

func TestFetchDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/object/abc123":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = io.WriteString(w, `<div class="details-campings">De Hoeve</div>`)
		case "/object/expired":
			w.WriteHeader(http.StatusUnauthorized)
		case "/object/broken":
			_, _ = io.WriteString(w, "Internal Server Error")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := upstream.New(upstream.Config{BaseURL: srv.URL}, nil)
	ctx := context.Background()

	content, err := c.FetchDetail(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "text/html; charset=utf-8", content.ContentType)
	assert.Contains(t, string(content.Body), "De Hoeve")

	_, err = c.FetchDetail(ctx, "expired")
	assert.ErrorIs(t, err, domain.ErrDetailLoad)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnauthorized)

	_, err = c.FetchDetail(ctx, "broken")
	assert.ErrorIs(t, err, domain.ErrDetailLoad)

	_, err = c.FetchDetail(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrDetailLoad)
}
