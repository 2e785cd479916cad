package coordinator

import (
	"context"
	"fmt"
	"log/slog"
)

// Step represents a single unit of work in a workflow.
// Compensate is only invoked when the orchestrator runs with compensation enabled.
type Step interface {
	Name() string
	Execute(ctx context.Context) error
	Compensate(ctx context.Context) error
}

// Orchestrator runs a collection of Steps strictly in order.
type Orchestrator struct {
	runID      string
	payload    string
	steps      []Step
	recorder   Recorder
	compensate bool
	log        *slog.Logger
}

type Option func(*Orchestrator)

// WithRecorder attaches an observer notified at every step boundary.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithCompensation makes the orchestrator undo completed steps (LIFO) when a later step fails.
func WithCompensation(enabled bool) Option {
	return func(o *Orchestrator) { o.compensate = enabled }
}

// WithPayload stores the serialized workflow input for recorders.
func WithPayload(payload string) Option {
	return func(o *Orchestrator) { o.payload = payload }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

func NewOrchestrator(runID string, steps []Step, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		runID:    runID,
		steps:    steps,
		recorder: NopRecorder{},
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start runs the steps sequentially and stops at the first failure.
// No step is started once ctx is done.
func (o *Orchestrator) Start(ctx context.Context) error {
	ctx = o.recorder.Started(ctx, o.runID, o.payload)

	var completed []Step
	for _, step := range o.steps {
		if err := ctx.Err(); err != nil {
			err = fmt.Errorf("workflow cancelled before step %s: %w", step.Name(), err)
			o.abort(ctx, completed, err)
			return err
		}

		stepCtx := o.recorder.StepStarted(ctx, o.runID, step.Name())
		o.log.DebugContext(stepCtx, "executing step", "run_id", o.runID, "step", step.Name())

		err := step.Execute(stepCtx)
		o.recorder.StepFinished(stepCtx, o.runID, step.Name(), err)
		if err != nil {
			o.log.WarnContext(ctx, "step failed", "run_id", o.runID, "step", step.Name(), "error", err)
			o.abort(ctx, completed, err)
			return err
		}
		completed = append(completed, step)
	}

	o.recorder.Finished(ctx, o.runID, nil)
	return nil
}

func (o *Orchestrator) abort(ctx context.Context, completed []Step, cause error) {
	if o.compensate {
		o.rollback(context.WithoutCancel(ctx), completed)
	}
	o.recorder.Finished(ctx, o.runID, cause)
}

func (o *Orchestrator) rollback(ctx context.Context, steps []Step) {
	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		err := step.Compensate(ctx)
		o.recorder.Compensated(ctx, o.runID, step.Name(), err)
		if err != nil {
			o.log.ErrorContext(ctx, "CRITICAL: failed to compensate step",
				"run_id", o.runID,
				"step", step.Name(),
				"error", err,
			)
			continue
		}
		o.log.InfoContext(ctx, "compensated step", "run_id", o.runID, "step", step.Name())
	}
}
