package commands

import (
	"context"

	"edgestats-backend/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath *string
	verbose    *bool
)

var rootCmd = &cobra.Command{
	Use:           "edge-cli",
	Short:         "edge-cli fetches NHL Edge skater statistics.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*verbose)
	},
}

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "edge.json5", "The configuration file, edge.local.json5 next to it overrides it.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log protocol level details.")
}

func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
