package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/samirrijal/campfinder/internal/core/domain"
)

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Fetch a broad listing and write the bundled preset",
	Long: `Fetch every listing within --radius of the country centroid and write
them as a JSON array. The result cache falls back to this file on first
run, before any search has reached the network.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		flags := cmd.Flags()
		out, _ := flags.GetString("out")
		if out == "" {
			out = cfg.Preset.Path
		}
		radius, _ := flags.GetFloat64("radius")
		lat, _ := flags.GetFloat64("lat")
		lng, _ := flags.GetFloat64("lng")
		center := domain.Coordinate{Latitude: lat, Longitude: lng}
		if !center.Valid() {
			return fmt.Errorf("coordinate %s out of range", center)
		}

		e, err := initEnv(ctx, cfg)
		if err != nil {
			return err
		}
		defer e.Close()

		if err := requireSession(ctx, e); err != nil {
			return err
		}

		records, err := e.Fetcher.Fetch(ctx, center, radius, nil)
		if err != nil {
			return fmt.Errorf("fetch preset listings: %w", err)
		}

		if dir := filepath.Dir(out); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", dir, err)
			}
		}
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create preset: %w", err)
		}
		if err := writeJSON(f, records); err != nil {
			_ = f.Close()
			return fmt.Errorf("write preset: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close preset: %w", err)
		}

		slog.Info("preset written", "path", out, "records", len(records))
		return nil
	},
}

func init() {
	f := presetCmd.Flags()
	f.String("out", "", "output path (default: preset.path)")
	f.Float64("radius", 300000, "radius in meters around the center")
	f.Float64("lat", domain.DefaultCenter.Latitude, "center latitude")
	f.Float64("lng", domain.DefaultCenter.Longitude, "center longitude")
	rootCmd.AddCommand(presetCmd)
}
