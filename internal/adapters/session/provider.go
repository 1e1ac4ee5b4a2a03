package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/samirrijal/campfinder/internal/adapters/upstream"
	"github.com/samirrijal/campfinder/internal/core/domain"
	"github.com/samirrijal/campfinder/internal/core/ports"
)

// ErrLoginFailed is returned when the proxy rejects the credentials.
var ErrLoginFailed = errors.New("login failed")

// sessionCheckQuery is a minimal listing query used to check that a session works.
var sessionCheckQuery = url.Values{
	"page":     {"0"},
	"lat":      {"52.1326"},
	"lng":      {"5.2913"},
	"distance": {"1"},
	"limit":    {"1"},
}.Encode()

// Config addresses the proxy's login and listing endpoints.
type Config struct {
	BaseURL     string
	LoginPath   string
	ListingPath string
	Timeout     time.Duration
}

// Provider implements ports.Authenticator on top of the proxy's session-token
// exchange. The token is kept in the device-local store.
type Provider struct {
	baseURL    string
	loginPath  string
	checkURL   string
	httpClient *http.Client
	store      ports.KeyValueStore
	publisher  ports.EventPublisher

	mu     sync.RWMutex
	token  string
	loaded bool
}

// New creates a Provider. store and publisher may be nil.
func New(cfg Config, store ports.KeyValueStore, publisher ports.EventPublisher) *Provider {
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	if cfg.ListingPath == "" {
		cfg.ListingPath = "/api/objects"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	return &Provider{
		baseURL:    baseURL,
		loginPath:  cfg.LoginPath,
		checkURL:   baseURL + cfg.ListingPath + "?" + sessionCheckQuery,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		store:      store,
		publisher:  publisher,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Error     string `json:"error"`
}

// Login exchanges credentials for a session token and stores it.
func (p *Provider) Login(ctx context.Context, email, password string) (string, error) {
	payload, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return "", fmt.Errorf("encode login: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+p.loginPath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read login response: %w", err)
	}

	var lr loginResponse
	jsonErr := json.Unmarshal(body, &lr)
	if resp.StatusCode != http.StatusOK {
		msg := lr.Message
		if msg == "" {
			msg = lr.Error
		}
		if jsonErr != nil || msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return "", fmt.Errorf("%w: status %d: %s", ErrLoginFailed, resp.StatusCode, msg)
	}
	if jsonErr != nil {
		return "", fmt.Errorf("%w: decode response: %w", ErrLoginFailed, jsonErr)
	}
	if lr.SessionID == "" {
		return "", fmt.Errorf("%w: no session_id in response", ErrLoginFailed)
	}

	p.setToken(ctx, lr.SessionID)
	slog.InfoContext(ctx, "logged in", "message", lr.Message)
	return lr.Message, nil
}

// Token implements upstream.TokenSource and ports.Authenticator.
func (p *Provider) Token() string {
	p.mu.RLock()
	if p.loaded {
		defer p.mu.RUnlock()
		return p.token
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		p.loaded = true
		if p.store != nil {
			if b, err := p.store.Get(context.Background(), ports.KeyLastKnownSessionToken); err == nil {
				p.token = string(b)
			}
		}
	}
	return p.token
}

// IsAuthenticated checks the listing endpoint with the stored token. Any
// answer other than 200, including a network failure, discards the token.
func (p *Provider) IsAuthenticated(ctx context.Context) bool {
	tok := p.Token()
	if tok == "" {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.checkURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set(upstream.SessionHeader, tok)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		slog.WarnContext(ctx, "session check failed", "error", err)
		p.Logout(ctx)
		return false
	}
	defer resp.Body.Close() //nolint:errcheck
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		slog.InfoContext(ctx, "session rejected", "status", resp.StatusCode)
		p.Logout(ctx)
		return false
	}
	return true
}

// OnUnauthorized implements ports.Authenticator: the token is dropped and the
// view layer is asked to show the login screen.
func (p *Provider) OnUnauthorized(ctx context.Context) {
	p.Logout(ctx)
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, domain.Event{Type: domain.EventAuthRequired, At: time.Now().UTC()}); err != nil {
		slog.WarnContext(ctx, "publish auth_required failed", "error", err)
	}
}

// Logout forgets the token.
func (p *Provider) Logout(ctx context.Context) {
	p.mu.Lock()
	p.token = ""
	p.loaded = true
	p.mu.Unlock()
	if p.store != nil {
		if err := p.store.Delete(ctx, ports.KeyLastKnownSessionToken); err != nil {
			slog.WarnContext(ctx, "clear session token failed", "error", err)
		}
	}
}

func (p *Provider) setToken(ctx context.Context, tok string) {
	p.mu.Lock()
	p.token = tok
	p.loaded = true
	p.mu.Unlock()
	if p.store != nil {
		if err := p.store.Set(ctx, ports.KeyLastKnownSessionToken, []byte(tok)); err != nil {
			slog.WarnContext(ctx, "persist session token failed", "error", err)
		}
	}
}
