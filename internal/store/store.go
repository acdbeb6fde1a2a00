// Package store keeps fetched aggregates around so they can be compared
// across fetches.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"edgestats-backend/internal/edge"
	"edgestats-backend/internal/store/db"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("internal/store")

var ErrNotFound = errors.New("no snapshot stored for player")

type Snapshot struct {
	ID        int64
	PlayerID  string
	FetchedAt time.Time
	Complete  bool
	Aggregate edge.Aggregate
	// Sections maps each filled target to the number of entries it held.
	Sections map[edge.Target]int
}

type Store struct {
	db  *sql.DB
	qry *db.Queries
}

// Open connects to dsn, which is either a path to a local sqlite file
// (created when missing), ":memory:" or a libsql:// url.
func Open(dsn string) (Store, error) {
	if dsn == "" {
		return Store{}, fmt.Errorf("a path was not specified")
	}

	var database *sql.DB
	var err error
	if isRemote(dsn) {
		database, err = sql.Open("libsql", dsn)
	} else {
		database, err = openSqlite(dsn)
	}
	if err != nil {
		return Store{}, err
	}

	_, err = database.Exec(db.Schema)
	if err != nil {
		database.Close()
		return Store{}, fmt.Errorf("apply schema: %w", err)
	}
	return New(database), nil
}

func isRemote(dsn string) bool {
	for _, scheme := range []string{"libsql://", "https://", "http://", "wss://", "ws://"} {
		if strings.HasPrefix(dsn, scheme) {
			return true
		}
	}
	return false
}

func openSqlite(path string) (*sql.DB, error) {
	if path != ":memory:" {
		_, statErr := os.Stat(path)
		if os.IsNotExist(statErr) {
			f, err := os.Create(path)
			if err != nil {
				return nil, err
			}
			f.Close()
		}
	}

	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single connection serializes writers, and keeps ":memory:" a single
	// database
	database.SetMaxOpenConns(1)
	if path != ":memory:" {
		_, err = database.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			database.Close()
			return nil, err
		}
	}
	_, err = database.Exec("PRAGMA foreign_keys=ON")
	if err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// New wraps a database that already has the schema applied.
func New(database *sql.DB) Store {
	return Store{
		db:  database,
		qry: db.New(database),
	}
}

func (s Store) Close() error {
	return s.db.Close()
}

// Put records the aggregate fetched for a player and returns the snapshot id.
func (s Store) Put(ctx context.Context, playerID string, fetchedAt time.Time, agg edge.Aggregate, expected edge.TargetSet) (int64, error) {
	ctx, span := tracer.Start(ctx, "Put")
	defer span.End()
	span.SetAttributes(attribute.String("player", playerID))

	id, err := s.put(ctx, playerID, fetchedAt, agg, expected)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	return id, nil
}

func (s Store) put(ctx context.Context, playerID string, fetchedAt time.Time, agg edge.Aggregate, expected edge.TargetSet) (int64, error) {
	data, err := json.Marshal(agg)
	if err != nil {
		return 0, fmt.Errorf("encode aggregate: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	id, err := txqry.CreateSnapshot(ctx, db.CreateSnapshotParams{
		Player:    playerID,
		FetchedAt: fetchedAt.Unix(),
		Complete:  agg.Complete(expected),
		Data:      string(data),
	})
	if err != nil {
		return 0, err
	}

	for target, entries := range sectionSizes(agg) {
		err := txqry.CreateSnapshotSection(ctx, db.CreateSnapshotSectionParams{
			SnapshotID: id,
			Section:    target.Section(),
			Entries:    int64(entries),
		})
		if err != nil {
			return 0, err
		}
	}

	err = tx.Commit()
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Latest returns the most recent snapshot of a player, ErrNotFound if there
// is none.
func (s Store) Latest(ctx context.Context, playerID string) (Snapshot, error) {
	ctx, span := tracer.Start(ctx, "Latest")
	defer span.End()
	span.SetAttributes(attribute.String("player", playerID))

	row, err := s.qry.GetLatestSnapshot(ctx, playerID)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Snapshot{}, err
	}
	return s.snapshot(ctx, row)
}

// History returns up to limit snapshots of a player, newest first.
func (s Store) History(ctx context.Context, playerID string, limit int) ([]Snapshot, error) {
	ctx, span := tracer.Start(ctx, "History")
	defer span.End()

	rows, err := s.qry.ListSnapshots(ctx, playerID, int64(limit))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	out := make([]Snapshot, len(rows))
	for i, row := range rows {
		out[i], err = s.snapshot(ctx, row)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Prune drops every snapshot of a player fetched before the given time.
func (s Store) Prune(ctx context.Context, playerID string, before time.Time) error {
	return s.qry.DeleteSnapshotsBefore(ctx, playerID, before.Unix())
}

func (s Store) snapshot(ctx context.Context, row db.Snapshot) (Snapshot, error) {
	snapshot := Snapshot{
		ID:        row.ID,
		PlayerID:  row.Player,
		FetchedAt: time.Unix(row.FetchedAt, 0),
		Complete:  row.Complete,
		Sections:  map[edge.Target]int{},
	}
	err := json.Unmarshal([]byte(row.Data), &snapshot.Aggregate)
	if err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot %d: %w", row.ID, err)
	}

	sections, err := s.qry.GetSnapshotSections(ctx, row.ID)
	if err != nil {
		return Snapshot{}, err
	}
	for _, section := range sections {
		snapshot.Sections[edge.ParseTarget(section.Section)] = int(section.Entries)
	}
	return snapshot, nil
}

func sectionSizes(agg edge.Aggregate) map[edge.Target]int {
	sizes := map[edge.Target]int{
		edge.TargetOverview:        len(agg.Overview),
		edge.TargetSkatingSpeed:    len(agg.SkatingSpeed),
		edge.TargetSkatingDistance: len(agg.SkatingDistance),
		edge.TargetShotSpeed:       len(agg.ShotSpeed),
		edge.TargetShotLocation:    len(agg.ShotLocation),
		edge.TargetZoneTime:        len(agg.ZoneTime),
	}
	for target, n := range sizes {
		if n == 0 {
			delete(sizes, target)
		}
	}
	return sizes
}
