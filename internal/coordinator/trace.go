package coordinator

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TraceRecorder opens one span per run and one child span per step.
type TraceRecorder struct {
	tracer   trace.Tracer
	spanName string
}

// NewTraceRecorder uses the global TracerProvider, so it is a no-op until
// telemetry.SetupTracer has registered a real one.
func NewTraceRecorder(spanName string) *TraceRecorder {
	return &TraceRecorder{
		tracer:   otel.Tracer("github.com/jcmexdev/ecommerce-orders/internal/coordinator"),
		spanName: spanName,
	}
}

func (r *TraceRecorder) Started(ctx context.Context, runID, _ string) context.Context {
	ctx, _ = r.tracer.Start(ctx, r.spanName, trace.WithAttributes(attribute.String("workflow.run_id", runID)))
	return ctx
}

func (r *TraceRecorder) StepStarted(ctx context.Context, runID, step string) context.Context {
	ctx, _ = r.tracer.Start(ctx, step, trace.WithAttributes(
		attribute.String("workflow.run_id", runID),
		attribute.String("workflow.step", step),
	))
	return ctx
}

func (r *TraceRecorder) StepFinished(ctx context.Context, _, _ string, err error) {
	endSpan(trace.SpanFromContext(ctx), err)
}

func (r *TraceRecorder) Compensated(ctx context.Context, _, step string, err error) {
	attrs := []attribute.KeyValue{attribute.String("workflow.step", step)}
	if err != nil {
		attrs = append(attrs, attribute.String("error", err.Error()))
	}
	trace.SpanFromContext(ctx).AddEvent("compensated", trace.WithAttributes(attrs...))
}

func (r *TraceRecorder) Finished(ctx context.Context, _ string, err error) {
	endSpan(trace.SpanFromContext(ctx), err)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
