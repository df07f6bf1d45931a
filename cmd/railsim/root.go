package main

import (
	"github.com/railtycoon/server/internal/config"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configDir string
	// set when the config file could not be read; defaults are in effect
	configErr error
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   AppName,
		Short: "Rail and air transport tycoon simulation server",
		Long: `railsim runs a persistent, real-time transport tycoon world. Players
build terminals and lines, buy trains and aircraft, and compete on a
shared leaderboard through the HTTP API.`,
		Version:       Version + " (" + BuildDate + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.configErr = config.Load(opts.configDir)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configDir, "config-dir", ".", "directory containing "+config.FileName)

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newQuoteCmd())
	cmd.AddCommand(newRankingCmd(opts))
	return cmd
}
