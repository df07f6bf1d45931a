package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/railtycoon/server/internal/config"
	"github.com/railtycoon/server/internal/logging"
	"github.com/railtycoon/server/internal/sim"
	"github.com/railtycoon/server/internal/storage"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newRankingCmd(root *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "ranking",
		Short: "Print the leaderboard of the persisted world",
		RunE: func(cmd *cobra.Command, args []string) error {
			slogManager := logging.NewSlogManager()
			slogManager.Setup(cmd.ErrOrStderr(), "warn", nil)
			logger := slogManager.Logger()
			if root.configErr != nil {
				logger.Warn("Failed to load config, using defaults!", "error", root.configErr)
			}

			store, _, err := openStorage(config.GetStorageConfig(), logger, zerolog.New(os.Stderr).Level(zerolog.WarnLevel))
			if err != nil {
				return err
			}
			defer store.Close()

			return printRanking(cmd.Context(), cmd.OutOrStdout(), store, limit, logger)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of entries")
	return cmd
}

func printRanking(ctx context.Context, out io.Writer, store storage.Backend, limit int, logger *slog.Logger) error {
	snap, err := store.LoadSnapshot(ctx)
	if errors.Is(err, storage.ErrNoSnapshot) {
		fmt.Fprintln(out, "no persisted world")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}

	world := sim.New(sim.Config{Logger: logger})
	if err := world.Restore(snap); err != nil {
		return fmt.Errorf("restoring world: %w", err)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "rank\towner\tscore\tbalance\tunits\t\n")
	for _, e := range world.Ranking(limit) {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t\n", e.Rank, e.OwnerID, e.Score, e.Balance, e.Units)
	}
	return tw.Flush()
}
