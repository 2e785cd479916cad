package workflowlog

import (
	"context"
	"log/slog"
)

// Recorder writes one log entry per workflow boundary. It satisfies
// coordinator.Recorder. Save failures are logged and never reach the workflow.
type Recorder struct {
	repo Repository
	log  *slog.Logger
}

func NewRecorder(repo Repository, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{repo: repo, log: log}
}

func (r *Recorder) Started(ctx context.Context, runID, payload string) context.Context {
	r.save(ctx, NewEntry(ctx, runID, StatusStarted, "", payload, nil))
	return ctx
}

func (r *Recorder) StepStarted(ctx context.Context, _, _ string) context.Context {
	return ctx
}

func (r *Recorder) StepFinished(ctx context.Context, runID, step string, err error) {
	if err != nil {
		r.save(ctx, NewEntry(ctx, runID, StatusStepFailed, step, "", []string{err.Error()}))
		return
	}
	r.save(ctx, NewEntry(ctx, runID, StatusStepDone, step, "", nil))
}

func (r *Recorder) Compensated(ctx context.Context, runID, step string, err error) {
	r.save(ctx, NewEntry(ctx, runID, StatusCompensated, step, "", errorList(err)))
}

func (r *Recorder) Finished(ctx context.Context, runID string, err error) {
	if err != nil {
		r.save(ctx, NewEntry(ctx, runID, StatusFailed, "", "", []string{err.Error()}))
		return
	}
	r.save(ctx, NewEntry(ctx, runID, StatusCompleted, "", "", nil))
}

func (r *Recorder) save(ctx context.Context, e *Entry) {
	if err := r.repo.Save(context.WithoutCancel(ctx), e); err != nil {
		r.log.ErrorContext(ctx, "failed to write workflow log",
			"run_id", e.RunID,
			"status", e.Status,
			"step", e.Step,
			"error", err,
		)
	}
}

func errorList(err error) []string {
	if err == nil {
		return nil
	}
	return []string{err.Error()}
}
