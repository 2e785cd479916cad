// Package workflowlog is a durable audit trail of workflow runs.
//
// Every boundary of a run (start, each step, compensation, outcome) appends one
// row. For order creation this is how operators find out which stock
// reservations a failed run left behind: a FAILED run whose STEP_DONE rows name
// reserve steps has decremented stock that no order accounts for.
package workflowlog

import "time"

// Status represents the lifecycle event recorded by an entry.
type Status string

const (
	StatusStarted     Status = "STARTED"
	StatusStepDone    Status = "STEP_DONE"
	StatusStepFailed  Status = "STEP_FAILED"
	StatusCompensated Status = "COMPENSATED"
	StatusCompleted   Status = "COMPLETED"
	StatusFailed      Status = "FAILED"
)

// Entry is a single row in the workflow_logs table.
type Entry struct {
	// RunID identifies one execution of a workflow.
	RunID string

	Status Status

	// Step is the step that just finished or was compensated. Empty for run-level events.
	Step string

	// Payload is the JSON input of the run. Written once on STARTED.
	Payload string

	// ErrorMessages is a JSON array of error strings.
	ErrorMessages string

	// TraceID and SpanID come from the OpenTelemetry span active when the row was written.
	TraceID string
	SpanID  string

	UpdatedAt time.Time
}
