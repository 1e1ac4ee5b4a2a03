package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/samirrijal/campfinder/internal/adapters/http"
	"github.com/samirrijal/campfinder/internal/core/domain"
	"github.com/samirrijal/campfinder/internal/pkg/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the local JSON/GraphQL/WebSocket API for the view layer",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides server.port)")
	serveCmd.Flags().String("cors-origins", "http://localhost:3000, http://localhost:5173", "allowed CORS origins")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	e, err := initEnv(ctx, cfg)
	if err != nil {
		return err
	}
	defer e.Close()

	port := cfg.Server.Port
	if p, _ := cmd.Flags().GetInt("port"); p > 0 {
		port = p
	}
	origins, _ := cmd.Flags().GetString("cors-origins")

	app := fiber.New(fiber.Config{
		ReadTimeout:  seconds(cfg.Server.ReadTimeout),
		WriteTimeout: seconds(cfg.Server.WriteTimeout),
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "campfinder",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       3600,
	}))

	httpadapter.SetupRoutes(app, &httpadapter.Dependencies{
		App:      e.App,
		Sessions: e.Sessions,
		Events:   e.Events,
		NATS:     e.NATS,
		Store:    e.Pinger(),
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		addr := fmt.Sprintf(":%d", port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	// Session check and first search; the result stays available on
	// GET /v1/results for clients that connect later.
	g.Go(func() error {
		report, err := e.App.Start(gctx)
		if err != nil {
			return fmt.Errorf("startup: %w", err)
		}
		logStart(gctx, report.Authenticated, report.SearchError, report.Result)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, draining connections...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			slog.Error("forced shutdown", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("server stopped")
	return nil
}

func logStart(ctx context.Context, authenticated bool, searchErr string, res *domain.SearchResult) {
	switch {
	case !authenticated:
		slog.InfoContext(ctx, "startup: login required")
	case searchErr != "":
		slog.WarnContext(ctx, "startup: initial search failed", "error", searchErr)
	case res != nil:
		slog.InfoContext(ctx, "startup: initial results",
			"source", res.Source,
			"records", len(res.Records),
		)
	}
}
