package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/samirrijal/campfinder/internal/core/domain"
)

var searchCmd = &cobra.Command{
	Use:   "search [place]",
	Short: "Rank campsites around a place or coordinate",
	Long: `Resolve a place name (or --lat/--lng) and list campsites by distance.

Repeat searches are served from the device-local snapshot; --force or a
changed --filter set queries the listing service again.

Examples:
  campfinder search Amsterdam
  campfinder search "Ede (Gelderland)" --limit 5
  campfinder search --lat 52.09 --lng 5.12 --format json
  campfinder search Utrecht --filter wifi --filter swimming_pool`,
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.Bool("force", false, "bypass the cache and query the listing service")
	f.Float64("lat", 0, "search around this latitude instead of a place")
	f.Float64("lng", 0, "search around this longitude instead of a place")
	f.StringSlice("filter", nil, "facility filter id (repeatable); replaces the stored filter set")
	f.Bool("clear-filters", false, "clear the stored filter set")
	f.Int("limit", 20, "maximum number of rows to print (0 = all)")
	f.String("format", "table", "output format: table or json")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	flags := cmd.Flags()
	lat, _ := flags.GetFloat64("lat")
	lng, _ := flags.GetFloat64("lng")
	pos, usePos, err := coordinateFlags(lat, lng, flags.Changed("lat"), flags.Changed("lng"))
	if err != nil {
		return err
	}
	query := strings.Join(args, " ")
	if usePos && query != "" {
		return fmt.Errorf("give either a place or --lat/--lng, not both")
	}
	force, _ := flags.GetBool("force")
	limit, _ := flags.GetInt("limit")
	format, _ := flags.GetString("format")

	e, err := initEnv(ctx, cfg)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := requireSession(ctx, e); err != nil {
		return err
	}

	search := e.App.Search
	if usePos {
		search.UpdatePosition(pos)
	}

	// Filter changes mark the cache stale; the next search goes to the network.
	if flags.Changed("filter") {
		ids, _ := flags.GetStringSlice("filter")
		e.App.Filters.Apply(ctx, ids)
	} else if reset, _ := flags.GetBool("clear-filters"); reset {
		e.App.Filters.Reset(ctx)
	}

	res, err := search.Search(ctx, query, force)
	if err != nil {
		if domain.UserCorrectable(err) {
			return fmt.Errorf("place not found: %q", query)
		}
		return err
	}

	if format == "json" {
		return writeJSON(os.Stdout, res)
	}
	printResult(os.Stdout, res, limit)
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printResult(w io.Writer, res *domain.SearchResult, limit int) {
	fmt.Fprintf(w, "%d campsites around %s (%s)\n\n", len(res.Records), res.Center, res.Source)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tDISTANCE\tNAME\tCITY\tID")
	for i, r := range res.Records {
		if limit > 0 && i >= limit {
			break
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, formatDistance(r.DistanceMeters), r.Name, r.City, r.ID)
	}
	_ = tw.Flush()

	if limit > 0 && len(res.Records) > limit {
		fmt.Fprintf(w, "\n... %d more (use --limit 0 to show all)\n", len(res.Records)-limit)
	}
}

func formatDistance(m float64) string {
	if m < 1000 {
		return fmt.Sprintf("%.0f m", m)
	}
	return fmt.Sprintf("%.1f km", m/1000)
}
