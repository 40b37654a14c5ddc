package operations

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/lo"
)

// logRunStart logs the start of a run
func (m *Manager) logRunStart(ctx context.Context, state *RunState, steps int) {
	m.logger.InfoContext(ctx, "run_start",
		slog.String("run_id", state.ID),
		slog.String("mode", string(state.Mode)),
		slog.Any("cohorts", state.Cohorts()),
		slog.Int("step_count", steps))
}

// logRunComplete logs per-table row counts and rejection counts at the end of a run
func (m *Manager) logRunComplete(ctx context.Context, state *RunState) {
	attrs := []any{
		slog.String("run_id", state.ID),
		slog.String("status", string(state.GetStatus())),
		slog.Duration("duration", state.Duration()),
		slog.Int("rejected_rows", state.Quality.Len()),
		slog.Int("dropped_rows", state.Quality.Dropped()),
	}
	if state.Schema != nil {
		counts := state.Schema.Counts()
		for _, table := range lo.Keys(counts) {
			attrs = append(attrs, slog.Int(table, counts[table]))
		}
	}
	m.logger.InfoContext(ctx, "run_complete", attrs...)
}

// logRunError logs a run error
func (m *Manager) logRunError(ctx context.Context, runID string, err error) {
	errorMsg := "unknown error"
	if err != nil {
		errorMsg = err.Error()
	}
	m.logger.ErrorContext(ctx, "run_error",
		slog.String("run_id", runID),
		slog.String("error", errorMsg))
}

// logStepStart logs the start of a step
func (m *Manager) logStepStart(ctx context.Context, runID, stepID string, number, total int) {
	m.logger.InfoContext(ctx, "step_start",
		slog.String("run_id", runID),
		slog.String("step", stepID),
		slog.Int("step_number", number),
		slog.Int("total_steps", total))
}

// logStepComplete logs the completion of a step
func (m *Manager) logStepComplete(ctx context.Context, runID, stepID string, duration time.Duration) {
	m.logger.InfoContext(ctx, "step_complete",
		slog.String("run_id", runID),
		slog.String("step", stepID),
		slog.Duration("duration", duration))
}

// logStepSkipped logs a step that did not run
func (m *Manager) logStepSkipped(ctx context.Context, runID, stepID, reason string) {
	m.logger.InfoContext(ctx, "step_skipped",
		slog.String("run_id", runID),
		slog.String("step", stepID),
		slog.String("reason", reason))
}

// logStepError logs a step error
func (m *Manager) logStepError(ctx context.Context, runID, stepID string, err error) {
	errorMsg := "unknown error"
	if err != nil {
		errorMsg = err.Error()
	}
	m.logger.ErrorContext(ctx, "step_error",
		slog.String("run_id", runID),
		slog.String("step", stepID),
		slog.String("error", errorMsg))
}
