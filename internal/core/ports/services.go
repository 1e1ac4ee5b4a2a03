package ports

import (
	"context"

	"github.com/samirrijal/campfinder/internal/core/domain"
)

// Geocoder resolves free text to candidate coordinates, best match first.
type Geocoder interface {
	Geocode(ctx context.Context, query string, limit int) ([]domain.Coordinate, error)
}

// ListingQuery is a bounded-radius query against the listing service.
type ListingQuery struct {
	Center       domain.Coordinate
	RadiusMeters float64
	Limit        int
	Filters      []string
}

// RawResponse is an undecoded upstream reply.
type RawResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// ListingTransport performs the HTTP exchange with the listing service.
// A non-nil error means no response was received at all.
type ListingTransport interface {
	FetchListings(ctx context.Context, q ListingQuery) (*RawResponse, error)
}

// DetailProvider returns the renderable detail page for a listing.
type DetailProvider interface {
	FetchDetail(ctx context.Context, objectID string) (*domain.DetailContent, error)
}

// Authenticator is the opaque session collaborator.
type Authenticator interface {
	// Token returns the current session token, or "" when logged out.
	Token() string
	// IsAuthenticated validates the current session against the upstream.
	IsAuthenticated(ctx context.Context) bool
	// OnUnauthorized discards the session and triggers re-login.
	OnUnauthorized(ctx context.Context)
}

// EventPublisher publishes view-layer events.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// EventSubscriber delivers view-layer events until the returned cancel
// function is called.
type EventSubscriber interface {
	Subscribe(ctx context.Context, handler func(ctx context.Context, event domain.Event)) (cancel func(), err error)
}
