package coordinator

import "context"

// Recorder observes a workflow run at its boundaries. Implementations must not
// fail the workflow; errors they hit are theirs to log.
//
// Started and StepStarted may return a derived context (e.g. carrying a span);
// the orchestrator passes that context to the step and back to StepFinished.
type Recorder interface {
	Started(ctx context.Context, runID, payload string) context.Context
	StepStarted(ctx context.Context, runID, step string) context.Context
	StepFinished(ctx context.Context, runID, step string, err error)
	Compensated(ctx context.Context, runID, step string, err error)
	Finished(ctx context.Context, runID string, err error)
}

type NopRecorder struct{}

func (NopRecorder) Started(ctx context.Context, _, _ string) context.Context     { return ctx }
func (NopRecorder) StepStarted(ctx context.Context, _, _ string) context.Context { return ctx }
func (NopRecorder) StepFinished(context.Context, string, string, error)          {}
func (NopRecorder) Compensated(context.Context, string, string, error)           {}
func (NopRecorder) Finished(context.Context, string, error)                      {}

// MultiRecorder fans every notification out to its members in order.
type MultiRecorder []Recorder

func (m MultiRecorder) Started(ctx context.Context, runID, payload string) context.Context {
	for _, r := range m {
		ctx = r.Started(ctx, runID, payload)
	}
	return ctx
}

func (m MultiRecorder) StepStarted(ctx context.Context, runID, step string) context.Context {
	for _, r := range m {
		ctx = r.StepStarted(ctx, runID, step)
	}
	return ctx
}

func (m MultiRecorder) StepFinished(ctx context.Context, runID, step string, err error) {
	for _, r := range m {
		r.StepFinished(ctx, runID, step, err)
	}
}

func (m MultiRecorder) Compensated(ctx context.Context, runID, step string, err error) {
	for _, r := range m {
		r.Compensated(ctx, runID, step, err)
	}
}

func (m MultiRecorder) Finished(ctx context.Context, runID string, err error) {
	for _, r := range m {
		r.Finished(ctx, runID, err)
	}
}
