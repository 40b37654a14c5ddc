package operations

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"cohortetl/internal/infrastructure"
)

const (
	TracerName = "cohortetl.operations"
)

// OperationTracer provides OpenTelemetry instrumentation for refresh runs
type OperationTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
}

// NewOperationTracer creates a tracer recording on the given providers.
// Nil providers fall back to the global ones.
func NewOperationTracer(providers *infrastructure.OTelProviders) (*OperationTracer, error) {
	tracer := otel.Tracer(TracerName)
	meter := otel.Meter(TracerName)
	if providers != nil {
		tracer = providers.Tracer
		meter = providers.Meter
	}
	return NewOperationTracerFrom(tracer, meter)
}

// NewOperationTracerFrom creates a tracer from explicit trace and metric sources
func NewOperationTracerFrom(tracer trace.Tracer, meter metric.Meter) (*OperationTracer, error) {
	metrics, err := infrastructure.CreatePipelineMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}
	return &OperationTracer{tracer: tracer, metrics: metrics}, nil
}

// noopTracer records nothing
func noopTracer() *OperationTracer {
	ot, _ := NewOperationTracerFrom(
		tracenoop.NewTracerProvider().Tracer(TracerName),
		metricnoop.NewMeterProvider().Meter(TracerName),
	)
	return ot
}

// TraceRun creates a span for the entire run
func (ot *OperationTracer) TraceRun(ctx context.Context, runID string, mode RunMode) (context.Context, trace.Span) {
	return ot.tracer.Start(ctx, fmt.Sprintf("refresh.%s", mode),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("run.mode", string(mode)),
		),
	)
}

// TraceStep creates a span for one step
func (ot *OperationTracer) TraceStep(ctx context.Context, runID, stepID string) (context.Context, trace.Span) {
	return ot.tracer.Start(ctx, fmt.Sprintf("refresh.step.%s", stepID),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("step.id", stepID),
		),
	)
}

// RecordStepCompletion records a step's duration and outcome on its span and metrics
func (ot *OperationTracer) RecordStepCompletion(ctx context.Context, span trace.Span, stepID string, duration time.Duration, err error) {
	ot.metrics.RecordStep(ctx, stepID, duration, err)

	span.SetAttributes(attribute.Float64("step.duration_seconds", duration.Seconds()))
	if err != nil {
		infrastructure.RecordError(ctx, err, trace.WithAttributes(
			attribute.String("step.id", stepID),
			attribute.String("error.type", string(GetErrorType(err))),
		))
		return
	}
	span.SetStatus(codes.Ok, "step completed")
}

// RecordRunCompletion records the run outcome and the per-table and per-reason counts
func (ot *OperationTracer) RecordRunCompletion(ctx context.Context, span trace.Span, state *RunState, err error) {
	duration := state.Duration()
	ot.metrics.RecordRun(ctx, duration, err)

	if state.Batch != nil {
		loaded := make(map[string]int)
		for kind, records := range state.Batch.Records {
			loaded[string(kind)] = len(records)
		}
		infrastructure.RecordCounts(ctx, ot.metrics.RowsLoaded, "source_kind", loaded)
	}
	infrastructure.RecordCounts(ctx, ot.metrics.RowsRejected, "reason", state.Quality.CountsByReason())
	if state.Schema != nil && err == nil && state.Mode == ModeRun {
		infrastructure.RecordCounts(ctx, ot.metrics.RowsPublished, "table", state.Schema.Counts())
	}

	span.SetAttributes(
		attribute.String("run.status", string(state.GetStatus())),
		attribute.Float64("run.duration_seconds", duration.Seconds()),
		attribute.Int("run.rejected_rows", state.Quality.Len()),
	)
	if err != nil {
		infrastructure.RecordError(ctx, err, trace.WithAttributes(attribute.String("run.id", state.ID)))
		return
	}
	infrastructure.AddSpanEvent(ctx, "run.completed", map[string]interface{}{
		"run_id":   state.ID,
		"rejected": state.Quality.Len(),
		"dropped":  state.Quality.Dropped(),
	})
	span.SetStatus(codes.Ok, "run completed")
}
