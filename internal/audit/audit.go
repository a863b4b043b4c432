// Package audit provides an append-only, SQLite-backed history of
// connection lifecycle events for operators to review after the fact. The
// dispatch core records connect, register, nick-change and quit events;
// channel joins and parts are not recorded. It grants no in-band
// command of its own — writing a row is the only operation the wire
// protocol can trigger.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// migrations holds the ordered list of DDL statements that bring the schema
// up to date. Index i corresponds to version i+1. Append, never edit or
// reorder.
var migrations = []string{
	// v1 — event log
	`CREATE TABLE IF NOT EXISTS events (
		id         TEXT PRIMARY KEY,
		event      TEXT NOT NULL,
		nickname   TEXT NOT NULL DEFAULT '',
		detail     TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL DEFAULT (unixepoch())
	)`,
	// v2 — index for operator queries by event type and time
	`CREATE INDEX IF NOT EXISTS idx_events_event_created ON events(event, created_at)`,
	// v3 — enable WAL mode
	`PRAGMA journal_mode=WAL`,
}

// Log wraps a SQLite database holding the audit event table.
type Log struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and applies any
// pending migrations.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	if _, err := db.Exec(`PRAGMA busy_timeout=5000`); err != nil {
		slog.Warn("audit: set busy_timeout", "error", err)
	}

	l := &Log{db: db}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Log) Close() error { return l.db.Close() }

func (l *Log) migrate() error {
	_, err := l.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := l.db.QueryRow(
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`,
	).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for i, stmt := range migrations {
		v := i + 1
		if v <= current {
			continue
		}
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", v, err)
		}
		if _, err := l.db.Exec(
			`INSERT INTO schema_migrations(version) VALUES(?)`, v,
		); err != nil {
			return fmt.Errorf("record migration %d: %w", v, err)
		}
		slog.Info("audit: applied migration", "version", v)
	}
	return nil
}

// Record inserts one audit row. Errors are logged, not returned: a failed
// audit write must never interrupt the client goroutine that triggered it.
func (l *Log) Record(ctx context.Context, event, nickname, detail string) {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO events(id, event, nickname, detail) VALUES(?, ?, ?, ?)`,
		uuid.NewString(), event, nickname, detail,
	)
	if err != nil {
		slog.Error("audit: record event", "error", err, "event", event, "nickname", nickname)
	}
}

// Event is one row of recorded history, returned by Recent for operator
// tooling.
type Event struct {
	ID        string
	Event     string
	Nickname  string
	Detail    string
	CreatedAt int64
}

// Recent returns the most recent n events, newest first.
func (l *Log) Recent(ctx context.Context, n int) ([]Event, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, event, nickname, detail, created_at FROM events ORDER BY created_at DESC, rowid DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Event, &e.Nickname, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
