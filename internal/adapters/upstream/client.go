package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samirrijal/campfinder/internal/core/domain"
	"github.com/samirrijal/campfinder/internal/core/ports"
)

// SessionHeader carries the session token to the proxy, which turns it into
// the upstream session cookie.
const SessionHeader = "X-SVR-Session"

const maxBodyBytes = 16 << 20

// TokenSource supplies the current session token ("" when logged out).
type TokenSource interface {
	Token() string
}

// Client talks to the listing service through the proxy. It implements
// ports.ListingTransport and ports.DetailProvider.
type Client struct {
	baseURL     string
	listingPath string
	detailPath  string
	httpClient  *http.Client
	tokens      TokenSource
}

// Config addresses the proxy endpoints.
type Config struct {
	BaseURL     string
	ListingPath string
	DetailPath  string
	Timeout     time.Duration
}

// New creates a Client. tokens may be nil.
func New(cfg Config, tokens TokenSource) *Client {
	if cfg.ListingPath == "" {
		cfg.ListingPath = "/api/objects"
	}
	if cfg.DetailPath == "" {
		cfg.DetailPath = "/object"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		listingPath: cfg.ListingPath,
		detailPath:  strings.TrimRight(cfg.DetailPath, "/"),
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		tokens:      tokens,
	}
}

// ListingURL builds the listing query URL.
func (c *Client) ListingURL(q ports.ListingQuery) string {
	params := url.Values{
		"page":     {"0"},
		"lat":      {strconv.FormatFloat(q.Center.Latitude, 'f', -1, 64)},
		"lng":      {strconv.FormatFloat(q.Center.Longitude, 'f', -1, 64)},
		"distance": {strconv.FormatFloat(q.RadiusMeters, 'f', 0, 64)},
		"limit":    {strconv.Itoa(q.Limit)},
	}
	for _, id := range q.Filters {
		params.Add("filter[facilities][]", id)
	}
	return c.baseURL + c.listingPath + "?" + params.Encode()
}

// FetchListings implements ports.ListingTransport. Any HTTP status is
// returned as a response; only transport failures are errors.
func (c *Client) FetchListings(ctx context.Context, q ports.ListingQuery) (*ports.RawResponse, error) {
	resp, body, err := c.get(ctx, c.ListingURL(q), "application/json")
	if err != nil {
		return nil, err
	}
	return &ports.RawResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// FetchDetail implements ports.DetailProvider.
func (c *Client) FetchDetail(ctx context.Context, objectID string) (*domain.DetailContent, error) {
	reqURL := c.baseURL + c.detailPath + "/" + url.PathEscape(objectID)
	resp, body, err := c.get(ctx, reqURL, "text/html,application/json")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDetailLoad, err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("detail %s: %w: %w", objectID, domain.ErrDetailLoad, domain.ErrUpstreamUnauthorized)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("detail %s: status %d: %w", objectID, resp.StatusCode, domain.ErrDetailLoad)
	case len(bytes.TrimSpace(body)) == 0:
		return nil, fmt.Errorf("detail %s: empty body: %w", objectID, domain.ErrDetailLoad)
	case bytes.Contains(body, []byte("Internal Server Error")):
		return nil, fmt.Errorf("detail %s: upstream error page: %w", objectID, domain.ErrDetailLoad)
	}
	return &domain.DetailContent{ContentType: resp.Header.Get("Content-Type"), Body: body}, nil
}

func (c *Client) get(ctx context.Context, reqURL, accept string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", accept)
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set(SessionHeader, tok)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("read body: %w", err)
	}
	return resp, body, nil
}
