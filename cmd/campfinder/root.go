package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/samirrijal/campfinder/internal/pkg/config"
	"github.com/samirrijal/campfinder/internal/pkg/logging"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "campfinder",
	Short: "Find campsites near a place or your position",
	Long: `campfinder resolves a place name to a coordinate, fetches nearby campsite
listings through the listing proxy, ranks them by distance and keeps a
device-local snapshot so repeat searches are served from cache.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load("campfinder")
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		level := cfg.Log.Level
		if v, _ := cmd.Flags().GetBool("verbose"); v {
			level = "debug"
		}
		logging.Setup(level, cfg.Log.Format)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
