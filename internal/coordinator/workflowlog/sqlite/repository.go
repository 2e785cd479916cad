// Package sqlite provides a SQLite-backed implementation of workflowlog.Repository.
//
// WAL mode is enabled on Open so the HTTP handlers can read a run's history
// while workflows keep appending to it.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jcmexdev/ecommerce-orders/internal/coordinator/workflowlog"

	// Pure-Go driver, no CGO.
	_ "modernc.org/sqlite"
)

// The table is append-only: each row is one event of a run.
const schema = `
CREATE TABLE IF NOT EXISTS workflow_logs (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id          TEXT        NOT NULL,
    status          TEXT        NOT NULL,
    step            TEXT        NOT NULL DEFAULT '',
    payload         TEXT,
    error_messages  TEXT        NOT NULL DEFAULT '[]',
    trace_id        TEXT        NOT NULL DEFAULT '',
    span_id         TEXT        NOT NULL DEFAULT '',
    updated_at      TEXT        NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_workflow_logs_run_id ON workflow_logs(run_id, updated_at);
CREATE INDEX IF NOT EXISTS idx_workflow_logs_trace_id ON workflow_logs(trace_id);
`

type Repository struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
//
//	repo, err := sqlite.Open("./data/workflow.db")
func Open(path string) (*Repository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	// single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Save inserts a new entry. It is safe to call concurrently.
func (r *Repository) Save(ctx context.Context, entry *workflowlog.Entry) error {
	const q = `
		INSERT INTO workflow_logs
			(run_id, status, step, payload, error_messages, trace_id, span_id, updated_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		entry.RunID,
		string(entry.Status),
		entry.Step,
		nullableString(entry.Payload),
		entry.ErrorMessages,
		entry.TraceID,
		entry.SpanID,
		formatTime(entry.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save workflow log for %q: %w", entry.RunID, err)
	}
	return nil
}

// History returns all entries for runID in insertion order. An unknown run
// yields an empty slice.
func (r *Repository) History(ctx context.Context, runID string) ([]workflowlog.Entry, error) {
	const q = `
		SELECT run_id, status, step, COALESCE(payload,''), error_messages,
		       trace_id, span_id, updated_at
		FROM   workflow_logs
		WHERE  run_id = ?
		ORDER  BY id ASC`

	rows, err := r.db.QueryContext(ctx, q, runID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: history for %q: %w", runID, err)
	}
	defer rows.Close()

	var out []workflowlog.Entry
	for rows.Next() {
		var (
			e         workflowlog.Entry
			updatedAt string
		)
		if err := rows.Scan(&e.RunID, &e.Status, &e.Step, &e.Payload, &e.ErrorMessages,
			&e.TraceID, &e.SpanID, &updatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan workflow log: %w", err)
		}
		if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: history for %q: %w", runID, err)
	}
	return out, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
