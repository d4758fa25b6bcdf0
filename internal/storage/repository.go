package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pointsledger/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get for an unknown journal ID.
var ErrNotFound = errors.New("journal entry not found")

// SQLiteRepository keeps the operation journal in a local SQLite file.
type SQLiteRepository struct {
	db            *sql.DB
	schemaVersion uint
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer; the worker and the server may share the file.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteRepository{db: db, schemaVersion: version}, nil
}

// SchemaVersion is the journal schema version applied at open.
func (r *SQLiteRepository) SchemaVersion() uint { return r.schemaVersion }

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const insertEntry = `
INSERT INTO journal_entries (
    id, kind, policy, actor, subject, action, points, week_table, cell,
    outcome, error_kind, error, balance_before, balance_after, cell_before,
    cell_after, occurred_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING`

// Record implements ledger.Journal. Re-recording an ID is a no-op, so a
// redelivered message is stored once.
func (r *SQLiteRepository) Record(ctx context.Context, e core.JournalEntry) error {
	if e.ID == "" {
		return errors.New("journal entry without id")
	}
	_, err := r.db.ExecContext(ctx, insertEntry,
		e.ID, e.Kind, e.Policy, e.Actor, e.Subject, e.Action, e.Points, e.Table, e.Cell,
		e.Outcome, e.ErrorKind, e.Error,
		nullInt(e.BalanceBefore), nullInt(e.BalanceAfter), nullInt(e.CellBefore), nullInt(e.CellAfter),
		e.OccurredAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert journal entry %s: %w", e.ID, err)
	}
	return nil
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Kind     string
	Policy   string
	Actor    string
	Outcomes []string
	Since    time.Time
	Limit    int
}

const selectEntries = `
SELECT id, kind, policy, actor, subject, action, points, week_table, cell,
       outcome, error_kind, error, balance_before, balance_after, cell_before,
       cell_after, occurred_at
FROM journal_entries`

// List returns matching entries, newest first.
func (r *SQLiteRepository) List(ctx context.Context, f Filter) ([]core.JournalEntry, error) {
	var (
		where []string
		args  []any
	)
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, f.Kind)
	}
	if f.Policy != "" {
		where = append(where, "policy = ?")
		args = append(args, f.Policy)
	}
	if f.Actor != "" {
		where = append(where, "actor = ?")
		args = append(args, f.Actor)
	}
	if len(f.Outcomes) > 0 {
		where = append(where, "outcome IN (?"+strings.Repeat(", ?", len(f.Outcomes)-1)+")")
		for _, o := range f.Outcomes {
			args = append(args, o)
		}
	}
	if !f.Since.IsZero() {
		where = append(where, "occurred_at >= ?")
		args = append(args, f.Since.UTC())
	}

	q := selectEntries
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY occurred_at DESC, id"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	defer rows.Close()

	var out []core.JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.JournalEntry, error) {
	row := r.db.QueryRowContext(ctx, selectEntries+" WHERE id = ?", id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.JournalEntry{}, ErrNotFound
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (core.JournalEntry, error) {
	var (
		e                     core.JournalEntry
		balBefore, balAfter   sql.NullInt64
		cellBefore, cellAfter sql.NullInt64
	)
	err := s.Scan(&e.ID, &e.Kind, &e.Policy, &e.Actor, &e.Subject, &e.Action, &e.Points, &e.Table, &e.Cell,
		&e.Outcome, &e.ErrorKind, &e.Error, &balBefore, &balAfter, &cellBefore, &cellAfter, &e.OccurredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, err
		}
		return e, fmt.Errorf("scan journal entry: %w", err)
	}
	e.BalanceBefore = intPtr(balBefore)
	e.BalanceAfter = intPtr(balAfter)
	e.CellBefore = intPtr(cellBefore)
	e.CellAfter = intPtr(cellAfter)
	return e, nil
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	return core.IntPtr(int(n.Int64))
}
