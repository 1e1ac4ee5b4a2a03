package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/samirrijal/campfinder/internal/adapters/places"
	"github.com/samirrijal/campfinder/internal/core/usecases"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest <prefix>",
	Short: "Autocomplete a place name from the local index",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := places.Load(cfg.Places.Path)
		if err != nil {
			return err
		}
		idx := usecases.NewPlaceIndex(list)

		suggestions := idx.Suggest(strings.Join(args, " "))
		if len(suggestions) == 0 {
			fmt.Fprintln(os.Stderr, "No matching places.")
			return nil
		}
		for _, s := range suggestions {
			fmt.Fprintln(os.Stdout, s)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(suggestCmd)
}
