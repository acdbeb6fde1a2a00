package commands

import (
	"fmt"
	"log/slog"
	"time"

	"edgestats-backend/internal/store"

	"github.com/spf13/cobra"
)

var (
	pruneDb     *string
	pruneMaxAge *time.Duration
)

func init() {
	pruneDb = pruneCmd.Flags().String("db", "", "The database to prune, overrides \"store\" in the config.")
	pruneMaxAge = pruneCmd.Flags().Duration("max-age", 30*24*time.Hour, "Snapshots older than this are dropped.")
	rootCmd.AddCommand(pruneCmd)
}

var pruneCmd = &cobra.Command{
	Use:   "prune <player_id>... [--max-age <duration>]",
	Short: "Drops old stored snapshots of the given players.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig(*configPath)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		if *pruneDb != "" {
			cfg.Store = *pruneDb
		}
		if cfg.Store == "" {
			return fmt.Errorf("no store configured, pass --db or set \"store\" in %s", *configPath)
		}

		s, err := store.Open(cfg.Store)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer s.Close()

		before := time.Now().Add(-*pruneMaxAge)
		for _, player := range args {
			err := s.Prune(cmd.Context(), player, before)
			if err != nil {
				return fmt.Errorf("prune %s: %w", player, err)
			}
			slog.Info("pruned snapshots", "player", player, "before", before.Format(time.DateTime))
		}
		return nil
	},
}
