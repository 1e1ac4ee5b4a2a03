package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/campfinder/internal/pkg/metrics"
)

// requestTimeout bounds handlers that reach the geocoder or the proxy.
const requestTimeout = 30 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, 429, "rate_limited", "too many requests, please try again later")
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/ws"
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	v1.Get("/suggest", SuggestHandler(deps))
	v1.Post("/start", timeout.NewWithContext(StartHandler(deps), requestTimeout))
	v1.Post("/search", timeout.NewWithContext(SearchHandler(deps), requestTimeout))
	v1.Get("/results", ResultsHandler(deps))
	v1.Put("/position", PositionHandler(deps))

	v1.Get("/filters", GetFiltersHandler(deps))
	v1.Put("/filters", timeout.NewWithContext(PutFiltersHandler(deps), requestTimeout))
	v1.Delete("/filters", timeout.NewWithContext(DeleteFiltersHandler(deps), requestTimeout))

	v1.Get("/view", GetViewHandler(deps))
	v1.Post("/view/toggle", ToggleViewHandler(deps))
	v1.Post("/view/detail/:id", OpenDetailHandler(deps))
	v1.Post("/view/back", BackHandler(deps))
	v1.Post("/view/forward", ForwardHandler(deps))
	v1.Get("/detail/:id", timeout.NewWithContext(DetailHandler(deps), requestTimeout))

	v1.Post("/session/login", timeout.NewWithContext(LoginHandler(deps), requestTimeout))
	v1.Get("/session", timeout.NewWithContext(SessionHandler(deps), requestTimeout))
	v1.Delete("/session", LogoutHandler(deps))

	// GraphQL
	app.Post("/graphql", timeout.NewWithContext(GraphQLHandler(deps), requestTimeout))

	// WebSocket
	if deps.Events != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws", websocket.New(WebSocketHandler(deps.Events)))
	}
}
