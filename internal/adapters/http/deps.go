package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/campfinder/internal/core/ports"
	"github.com/samirrijal/campfinder/internal/core/usecases"
)

// Sessions is the part of the session provider the handlers use.
type Sessions interface {
	Login(ctx context.Context, email, password string) (string, error)
	IsAuthenticated(ctx context.Context) bool
	Logout(ctx context.Context)
}

// Pinger is implemented by stores that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	App      *usecases.App
	Sessions Sessions
	Events   ports.EventSubscriber
	NATS     *nats.Conn
	Store    Pinger
}
