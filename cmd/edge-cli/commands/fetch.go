package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"edgestats-backend/internal/credentials"
	"edgestats-backend/internal/edge"
	"edgestats-backend/internal/session"
	"edgestats-backend/internal/store"
	"edgestats-backend/lib/archive"
	"edgestats-backend/lib/telemetry"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	fetchOut         *string
	fetchTable       *bool
	fetchDb          *string
	fetchNoBootstrap *bool
	fetchInsecure    *bool
)

func init() {
	fetchOut = fetchCmd.Flags().StringP("out", "o", "", "A directory to write <player>.json files to, stdout when empty.")
	fetchTable = fetchCmd.Flags().Bool("table", false, "Print the results as tables instead of JSON.")
	fetchDb = fetchCmd.Flags().String("db", "", "The database to record results in, overrides \"store\" in the config.")
	fetchNoBootstrap = fetchCmd.Flags().Bool("no-bootstrap", false, "Do not collect cookies from the landing page before connecting.")
	fetchInsecure = fetchCmd.Flags().Bool("insecure", false, "Skip TLS certificate verification on the websocket.")
	rootCmd.AddCommand(fetchCmd)
}

type fetchResult struct {
	player string
	agg    edge.Aggregate
	err    error
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <player_id>... [--out <dir>] [--table] [--db <path>]",
	Short: "Fetches the Edge statistics of the given players.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := readConfig(*configPath)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		if *fetchDb != "" {
			cfg.Store = *fetchDb
		}
		if *fetchNoBootstrap {
			cfg.Bootstrap = ""
		}
		if *fetchInsecure {
			cfg.InsecureSkipVerify = true
		}

		tel := telemetry.SlogAPI{}
		fetcher, err := newFetcher(cfg, tel)
		if err != nil {
			return err
		}
		defer fetcher.Close()

		creds, err := fetcher.creds.Credentials(ctx)
		if err != nil {
			return fmt.Errorf("collect credentials: %w", err)
		}

		results := fetcher.FetchAll(ctx, args, creds)

		failed := 0
		for _, res := range results {
			if res.err != nil {
				failed++
				slog.Error("fetch failed", "player", res.player, "err", res.err)
			}
			if !res.agg.Complete(edge.NewTargetSet(fetcher.session.ExpectedTargets...)) {
				slog.Warn("partial result", "player", res.player, "filled", res.agg.Filled())
			}
			err := output(res)
			if err != nil {
				return err
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d fetches failed", failed, len(results))
		}
		return nil
	},
}

func output(res fetchResult) error {
	if *fetchTable {
		renderAggregate(os.Stdout, res.player, res.agg)
		return nil
	}
	if *fetchOut == "" {
		return writeJson(os.Stdout, res.agg)
	}

	err := os.MkdirAll(*fetchOut, 0777)
	if err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(*fetchOut, fmt.Sprintf("%s.json", filepath.Base(res.player))))
	if err != nil {
		return err
	}
	defer f.Close()
	return writeJson(f, res.agg)
}

type fetcher struct {
	session  session.Config
	dialer   session.Dialer
	creds    credentials.Provider
	store    *store.Store
	archive  *archive.FilesystemOutput
	extract  session.Extractor
	parallel int
	tel      telemetry.API
}

func newFetcher(cfg Config, tel telemetry.API) (*fetcher, error) {
	sessionCfg, err := cfg.Session()
	if err != nil {
		return nil, err
	}
	dialer, err := cfg.Dialer()
	if err != nil {
		return nil, err
	}
	creds, err := cfg.Credentials(sessionCfg.Headers["User-Agent"], tel)
	if err != nil {
		return nil, err
	}

	f := &fetcher{
		session:  sessionCfg,
		dialer:   dialer,
		creds:    creds,
		extract:  edge.NewExtractor(tel),
		parallel: max(cfg.Parallel, 1),
		tel:      tel,
	}

	if cfg.Store != "" {
		s, err := store.Open(cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		f.store = &s
	}
	if cfg.ArchiveDir != "" {
		out, err := archive.NewFilesystemOutput(cfg.ArchiveDir, tel)
		if err != nil {
			f.Close()
			return nil, err
		}
		slog.Info("archiving raw messages", "dir", out.Dir())
		f.archive = &out
	}
	return f, nil
}

func (f *fetcher) Close() {
	if f.store != nil {
		err := f.store.Close()
		if err != nil {
			slog.Warn("failed to close store", "err", err)
		}
	}
}

// FetchAll runs one session per player, at most f.parallel at a time. The
// results keep the order of players.
func (f *fetcher) FetchAll(ctx context.Context, players []string, creds credentials.Credentials) []fetchResult {
	results := make([]fetchResult, len(players))

	eg := errgroup.Group{}
	eg.SetLimit(f.parallel)
	for i, player := range players {
		eg.Go(func() error {
			agg, err := f.Fetch(ctx, player, creds)
			results[i] = fetchResult{player: player, agg: agg, err: err}
			return nil
		})
	}
	eg.Wait()

	return results
}

// Fetch runs a single session and records its result. Partial results are
// recorded too, they are marked as incomplete.
func (f *fetcher) Fetch(ctx context.Context, player string, creds credentials.Credentials) (edge.Aggregate, error) {
	opts := []session.Option{session.WithExtractor(f.extract)}
	if f.archive != nil {
		out, err := f.archive.Sub(player)
		if err != nil {
			return edge.Aggregate{}, err
		}
		opts = append(opts, session.WithArchive(out))
	}

	start := time.Now()
	s := session.New(f.session, f.dialer, f.tel, opts...)
	agg, err := s.Start(ctx, player, creds)
	slog.Info(
		"session finished",
		"player", player,
		"state", s.State().String(),
		"received", len(s.Received()),
		"seconds", time.Since(start).Seconds(),
	)
	if errors.Is(err, session.ErrInvalidPlayer) || agg.Empty() {
		return agg, err
	}

	if f.store != nil {
		// an interrupted fetch is still worth keeping
		_, storeErr := f.store.Put(context.WithoutCancel(ctx), player, start, agg, edge.NewTargetSet(f.session.ExpectedTargets...))
		if storeErr != nil {
			return agg, errors.Join(err, fmt.Errorf("store: %w", storeErr))
		}
	}
	return agg, err
}
