// Package history persists retired activity records in SQLite so the
// review trail survives restarts. Records are append-only; the only
// mutation is a bulk clear.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"curator/internal/activity"
	"curator/internal/config"
)

// Archive manages the on-disk history database.
type Archive struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS history (
    id              TEXT PRIMARY KEY,
    original_name   TEXT NOT NULL,
    final_name      TEXT NOT NULL,
    original_folder TEXT NOT NULL,
    final_folder    TEXT NOT NULL,
    summary         TEXT NOT NULL DEFAULT '',
    action          TEXT NOT NULL,
    created_at      TEXT NOT NULL,
    retired_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_retired_at ON history (retired_at DESC);
`

// Open initializes or connects to the history database under the
// configured data directory.
func Open(cfg *config.Config) (*Archive, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "history.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Archive{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (a *Archive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Path returns the database file location.
func (a *Archive) Path() string {
	return a.path
}

// Append stores one retired record.
func (a *Archive) Append(ctx context.Context, record activity.HistoryRecord) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := a.db.ExecContext(ctx, `
INSERT OR REPLACE INTO history
    (id, original_name, final_name, original_folder, final_folder, summary, action, created_at, retired_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			record.ID,
			record.OriginalName,
			record.FinalName,
			record.OriginalFolder,
			record.FinalFolder,
			record.Summary,
			string(record.Action),
			record.CreatedAt.UTC().Format(time.RFC3339Nano),
			record.RetiredAt.UTC().Format(time.RFC3339Nano),
		)
		return err
	})
}

// List returns all records, most recently retired first.
func (a *Archive) List(ctx context.Context) ([]activity.HistoryRecord, error) {
	ctx = ensureContext(ctx)
	rows, err := a.db.QueryContext(ctx, `
SELECT id, original_name, final_name, original_folder, final_folder, summary, action, created_at, retired_at
FROM history
ORDER BY retired_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var records []activity.HistoryRecord
	for rows.Next() {
		var (
			record             activity.HistoryRecord
			action             string
			created, retiredAt string
		)
		if err := rows.Scan(
			&record.ID,
			&record.OriginalName,
			&record.FinalName,
			&record.OriginalFolder,
			&record.FinalFolder,
			&record.Summary,
			&action,
			&created,
			&retiredAt,
		); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		record.Action = activity.UserAction(action)
		if record.CreatedAt, err = parseTimestamp(created); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		if record.RetiredAt, err = parseTimestamp(retiredAt); err != nil {
			return nil, fmt.Errorf("parse retired_at: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Count returns the number of stored records.
func (a *Archive) Count(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)
	var count int
	if err := a.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM history").Scan(&count); err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return count, nil
}

// Clear removes every record.
func (a *Archive) Clear(ctx context.Context) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := a.db.ExecContext(ctx, "DELETE FROM history")
		return err
	})
}

func parseTimestamp(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
