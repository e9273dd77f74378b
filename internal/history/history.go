// Package history mirrors terminal action records into a local SQLite
// database so past actions survive queue-directory housekeeping and can be
// listed by the client.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mattjoyce/deskbridge/internal/action"
)

// Entry is one recorded terminal action.
type Entry struct {
	ID          string
	Kind        action.Kind
	Status      action.Status
	Result      string
	Error       string
	SubmittedAt time.Time
	CompletedAt time.Time
}

// Store is the SQLite-backed action history.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path and ensures
// the schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("history path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS action_log (
  id           TEXT PRIMARY KEY,
  action       TEXT NOT NULL,
  status       TEXT NOT NULL,
  result       TEXT,
  error        TEXT,
  submitted_at TEXT NOT NULL,
  completed_at TEXT NOT NULL
);`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap history schema: %w", err)
	}
	if _, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS action_log_completed_at_idx ON action_log(completed_at);`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap history index: %w", err)
	}

	return &Store{db: db}, nil
}

// Record appends a terminal record. Re-recording the same id replaces the row,
// which keeps the mirror idempotent under sweep re-delivery.
func (s *Store) Record(ctx context.Context, rec *action.Record) error {
	if !rec.Status.Terminal() {
		return fmt.Errorf("record %s is not terminal (%s)", rec.ID, rec.Status)
	}

	submitted := time.Unix(rec.SubmittedAt, 0).UTC().Format(time.RFC3339)
	completed := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(ctx, `
INSERT OR REPLACE INTO action_log(id, action, status, result, error, submitted_at, completed_at)
VALUES(?, ?, ?, ?, ?, ?, ?);
`, rec.ID, string(rec.Kind), string(rec.Status), rec.Result, rec.Error, submitted, completed)
	if err != nil {
		return fmt.Errorf("record action history: %w", err)
	}
	return nil
}

// Recent returns the n most recently completed entries, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		n = 20
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, action, status, result, error, submitted_at, completed_at
FROM action_log
ORDER BY completed_at DESC
LIMIT ?;
`, n)
	if err != nil {
		return nil, fmt.Errorf("query action history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                    Entry
			kind, status         string
			result, errMsg       sql.NullString
			submitted, completed string
		)
		if err := rows.Scan(&e.ID, &kind, &status, &result, &errMsg, &submitted, &completed); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.Kind = action.Kind(kind)
		e.Status = action.Status(status)
		e.Result = result.String
		e.Error = errMsg.String
		if t, err := time.Parse(time.RFC3339, submitted); err == nil {
			e.SubmittedAt = t
		}
		if t, err := time.Parse(time.RFC3339Nano, completed); err == nil {
			e.CompletedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
