package commands

import (
	"fmt"
	"os"
	"time"

	"edgestats-backend/internal/edge"
	"edgestats-backend/internal/store"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	showDb      *string
	showTable   *bool
	showHistory *int
)

func init() {
	showDb = showCmd.Flags().String("db", "", "The database to read from, overrides \"store\" in the config.")
	showTable = showCmd.Flags().Bool("table", false, "Print the snapshot as tables instead of JSON.")
	showHistory = showCmd.Flags().Int("history", 0, "List the last N snapshots instead of printing the latest one.")
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show <player_id> [--db <path>] [--table] [--history <n>]",
	Short: "Prints the most recently stored statistics of a player.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig(*configPath)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		if *showDb != "" {
			cfg.Store = *showDb
		}
		if cfg.Store == "" {
			return fmt.Errorf("no store configured, pass --db or set \"store\" in %s", *configPath)
		}

		s, err := store.Open(cfg.Store)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer s.Close()

		player := args[0]
		if *showHistory > 0 {
			snapshots, err := s.History(cmd.Context(), player, *showHistory)
			if err != nil {
				return err
			}
			renderHistory(snapshots)
			return nil
		}

		snapshot, err := s.Latest(cmd.Context(), player)
		if err != nil {
			return err
		}
		if *showTable {
			renderAggregate(os.Stdout, player, snapshot.Aggregate)
			return nil
		}
		return writeJson(os.Stdout, snapshot.Aggregate)
	},
}

func renderHistory(snapshots []store.Snapshot) {
	t := newTable(os.Stdout, "")
	header := table.Row{"ID", "Fetched", "Complete"}
	for _, target := range edge.AllTargets() {
		header = append(header, target.Section())
	}
	t.AppendHeader(header)

	for _, snapshot := range snapshots {
		row := table.Row{
			snapshot.ID,
			snapshot.FetchedAt.Format(time.DateTime),
			snapshot.Complete,
		}
		for _, target := range edge.AllTargets() {
			row = append(row, snapshot.Sections[target])
		}
		t.AppendRow(row)
	}
	t.Render()
}
