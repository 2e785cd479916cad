package workflowlog

import "context"

// Repository persists workflow log entries.
type Repository interface {
	// Save appends a row; the log is never updated in place.
	Save(ctx context.Context, entry *Entry) error
	// History returns every entry of a run, oldest first.
	History(ctx context.Context, runID string) ([]Entry, error)
}
