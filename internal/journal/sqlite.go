// Package journal persists the history of publish and tip operations.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tipfeed/internal/feed"
	"tipfeed/internal/journal/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

var _ feed.Journal = (*SQLiteJournal)(nil)

// SQLiteJournal implements feed.Journal using SQLite.
type SQLiteJournal struct {
	db   *sql.DB
	path string
}

// NewSQLiteJournal opens the journal at path, or ":memory:" for an in-memory
// journal, and migrates it to the latest schema.
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating journal: %w", err)
	}

	return &SQLiteJournal{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection.
// path can be a file path or ":memory:" for an in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn += "?_busy_timeout=5000&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}
	return db, nil
}

// Path returns the location the journal was opened from.
func (j *SQLiteJournal) Path() string {
	return j.path
}

// Record inserts op, or updates the row with the same ID.
func (j *SQLiteJournal) Record(ctx context.Context, op *feed.Operation) error {
	const query = `
		INSERT INTO operations (id, kind, subject, state, content_ref, tx_hash, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			state       = excluded.state,
			content_ref = excluded.content_ref,
			tx_hash     = excluded.tx_hash,
			error       = excluded.error,
			finished_at = excluded.finished_at`

	_, err := j.db.ExecContext(ctx, query,
		op.ID,
		string(op.Kind),
		op.Subject,
		op.State.String(),
		op.ContentRef,
		op.TxHash,
		op.Error,
		op.StartedAt.UnixNano(),
		nullTime(op.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("recording operation %s: %w", op.ID, err)
	}
	return nil
}

// Recent returns up to limit operations, newest first.
func (j *SQLiteJournal) Recent(ctx context.Context, limit int) ([]*feed.Operation, error) {
	return j.list(ctx, "", limit)
}

// RecentByKind is Recent restricted to one kind of operation.
func (j *SQLiteJournal) RecentByKind(ctx context.Context, kind feed.OperationKind, limit int) ([]*feed.Operation, error) {
	return j.list(ctx, kind, limit)
}

// Get returns the operation with the given ID, or nil when there is none.
func (j *SQLiteJournal) Get(ctx context.Context, id string) (*feed.Operation, error) {
	row := j.db.QueryRowContext(ctx, selectOperations+` WHERE id = ?`, id)
	op, err := scanOperation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting operation %s: %w", id, err)
	}
	return op, nil
}

// Close closes the database connection.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

const selectOperations = `
	SELECT id, kind, subject, state, content_ref, tx_hash, error, started_at, finished_at
	FROM operations`

func (j *SQLiteJournal) list(ctx context.Context, kind feed.OperationKind, limit int) ([]*feed.Operation, error) {
	if limit <= 0 {
		return nil, nil
	}

	var (
		rows *sql.Rows
		err  error
	)
	if kind == "" {
		rows, err = j.db.QueryContext(ctx,
			selectOperations+` ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	} else {
		rows, err = j.db.QueryContext(ctx,
			selectOperations+` WHERE kind = ? ORDER BY started_at DESC, rowid DESC LIMIT ?`, string(kind), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var ops []*feed.Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOperation(s scanner) (*feed.Operation, error) {
	var (
		op        feed.Operation
		kind      string
		state     string
		startedAt int64
		finished  sql.NullInt64
	)
	err := s.Scan(&op.ID, &kind, &op.Subject, &state, &op.ContentRef, &op.TxHash, &op.Error, &startedAt, &finished)
	if err != nil {
		return nil, err
	}

	op.Kind = feed.OperationKind(kind)
	op.State, err = feed.ParseState(state)
	if err != nil {
		return nil, fmt.Errorf("operation %s: %w", op.ID, err)
	}
	op.StartedAt = time.Unix(0, startedAt).UTC()
	if finished.Valid {
		op.FinishedAt = time.Unix(0, finished.Int64).UTC()
	}
	return &op, nil
}

func nullTime(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}
