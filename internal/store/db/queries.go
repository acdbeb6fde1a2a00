package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Snapshot struct {
	ID        int64
	Player    string
	FetchedAt int64
	Complete  bool
	Data      string
}

type SnapshotSection struct {
	Section string
	Entries int64
}

const createSnapshot = `insert into snapshot (player, fetched_at, complete, data)
values (?, ?, ?, ?)
returning id`

type CreateSnapshotParams struct {
	Player    string
	FetchedAt int64
	Complete  bool
	Data      string
}

func (q *Queries) CreateSnapshot(ctx context.Context, arg CreateSnapshotParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createSnapshot,
		arg.Player,
		arg.FetchedAt,
		arg.Complete,
		arg.Data,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const createSnapshotSection = `insert into snapshot_section (snapshot_id, section, entries)
values (?, ?, ?)`

type CreateSnapshotSectionParams struct {
	SnapshotID int64
	Section    string
	Entries    int64
}

func (q *Queries) CreateSnapshotSection(ctx context.Context, arg CreateSnapshotSectionParams) error {
	_, err := q.db.ExecContext(ctx, createSnapshotSection, arg.SnapshotID, arg.Section, arg.Entries)
	return err
}

const getLatestSnapshot = `select id, player, fetched_at, complete, data from snapshot
where player = ?
order by fetched_at desc, id desc
limit 1`

func (q *Queries) GetLatestSnapshot(ctx context.Context, player string) (Snapshot, error) {
	row := q.db.QueryRowContext(ctx, getLatestSnapshot, player)
	var i Snapshot
	err := row.Scan(
		&i.ID,
		&i.Player,
		&i.FetchedAt,
		&i.Complete,
		&i.Data,
	)
	return i, err
}

const getSnapshotSections = `select section, entries from snapshot_section
where snapshot_id = ?
order by section`

func (q *Queries) GetSnapshotSections(ctx context.Context, snapshotID int64) ([]SnapshotSection, error) {
	rows, err := q.db.QueryContext(ctx, getSnapshotSections, snapshotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SnapshotSection
	for rows.Next() {
		var i SnapshotSection
		if err := rows.Scan(&i.Section, &i.Entries); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listSnapshots = `select id, player, fetched_at, complete, data from snapshot
where player = ?
order by fetched_at desc, id desc
limit ?`

func (q *Queries) ListSnapshots(ctx context.Context, player string, limit int64) ([]Snapshot, error) {
	rows, err := q.db.QueryContext(ctx, listSnapshots, player, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Snapshot
	for rows.Next() {
		var i Snapshot
		if err := rows.Scan(
			&i.ID,
			&i.Player,
			&i.FetchedAt,
			&i.Complete,
			&i.Data,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteSnapshotsBefore = `delete from snapshot where player = ? and fetched_at < ?`

func (q *Queries) DeleteSnapshotsBefore(ctx context.Context, player string, before int64) error {
	_, err := q.db.ExecContext(ctx, deleteSnapshotsBefore, player, before)
	return err
}
