package main

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/railtycoon/server/internal/economy"
	"github.com/railtycoon/server/internal/geo"
	"github.com/railtycoon/server/pkg/core"
	"github.com/spf13/cobra"
)

func newQuoteCmd() *cobra.Command {
	var (
		track string
		flat  bool
		seed  int64
	)

	cmd := &cobra.Command{
		Use:   "quote POLYLINE",
		Short: "Price a line offline",
		Long: `Price a line from a JSON polyline such as '[[35.68,139.76],[35.63,139.74]]'
without a running server. Terrain is synthetic unless --flat is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coords, err := geo.ParsePolyline(args[0])
			if err != nil {
				return err
			}

			var terrain economy.Terrain = economy.Flat
			if !flat {
				terrain = economy.NewSyntheticTerrain(rand.New(rand.NewSource(seed)))
			}

			q, err := economy.RouteCost(coords, core.TrackType(track), terrain)
			if err != nil {
				return fmt.Errorf("quoting line: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(q)
		},
	}
	cmd.Flags().StringVar(&track, "track", string(core.TrackSingle), "track type (single, double, linear, tram, air)")
	cmd.Flags().BoolVar(&flat, "flat", false, "assume sea-level terrain")
	cmd.Flags().Int64Var(&seed, "seed", 1, "seed of the synthetic terrain jitter")
	return cmd
}
