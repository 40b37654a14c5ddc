package operations

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"cohortetl/internal/config"
	"cohortetl/internal/infrastructure"
)

// Manager runs the refresh steps in order against one RunState
type Manager struct {
	steps  []Step
	config *Config
	tracer *OperationTracer
	logger *slog.Logger
}

// NewManager creates a manager executing steps in the given order.
// A nil tracer records nothing.
func NewManager(steps []Step, tracer *OperationTracer, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = noopTracer()
	}
	return &Manager{
		steps:  steps,
		config: NewConfig(),
		tracer: tracer,
		logger: logger.With(slog.String("component", "operations")),
	}
}

// SetConfig updates the execution configuration
func (m *Manager) SetConfig(config *Config) {
	if config != nil {
		m.config = config
	}
}

// GetConfig returns the current execution configuration
func (m *Manager) GetConfig() *Config {
	return m.config
}

// Steps returns the registered step IDs in execution order
func (m *Manager) Steps() []string {
	ids := make([]string, len(m.steps))
	for i, s := range m.steps {
		ids[i] = s.ID()
	}
	return ids
}

// Execute runs one refresh. The returned state holds every artifact produced,
// including on failure, so callers can inspect how far the run got.
func (m *Manager) Execute(ctx context.Context, req RunRequest, cfg *config.Config) (*RunState, error) {
	if req.ID == "" {
		req.ID = infrastructure.GetRunID(ctx)
	}
	if req.ID == "" {
		req.ID = infrastructure.NewRunID()
	}
	if req.Mode == "" {
		req.Mode = ModeRun
	}
	ctx = infrastructure.WithRunID(ctx, req.ID)

	state := NewRunState(req.ID, req.Mode, cfg)
	for _, step := range m.steps {
		state.SetStep(step.ID(), NewStepState(step.ID(), step.Name()))
	}

	ctx, span := m.tracer.TraceRun(ctx, req.ID, req.Mode)
	defer span.End()

	state.Start()
	m.logRunStart(ctx, state, len(m.steps))

	err := m.executeSequential(ctx, state)
	switch {
	case err == nil:
		state.Complete()
	case IsCancellation(err):
		state.Cancel(err)
	default:
		state.Fail(err)
	}

	if err != nil {
		m.logRunError(ctx, req.ID, err)
	}
	m.logRunComplete(ctx, state)
	m.tracer.RecordRunCompletion(ctx, span, state, err)
	return state, err
}

// executeSequential executes steps one by one, stopping at the first failure.
// Every later step is marked skipped.
func (m *Manager) executeSequential(ctx context.Context, state *RunState) error {
	for i, step := range m.steps {
		if err := ctx.Err(); err != nil {
			m.skipRemaining(ctx, state, i, "run cancelled")
			return NewCancellationError(step.ID(), err)
		}

		if m.config.ShouldSkip(step.ID()) {
			reason := fmt.Sprintf("disabled in %s mode", state.Mode)
			state.GetStep(step.ID()).Skip(reason)
			m.logStepSkipped(ctx, state.ID, step.ID(), reason)
			continue
		}

		m.logStepStart(ctx, state.ID, step.ID(), i+1, len(m.steps))
		if err := m.executeStep(ctx, state, step); err != nil {
			m.logStepError(ctx, state.ID, step.ID(), err)
			m.skipRemaining(ctx, state, i+1, fmt.Sprintf("step %s failed", step.ID()))
			return err
		}
	}
	return nil
}

// executeStep validates and runs a single step under its timeout
func (m *Manager) executeStep(ctx context.Context, state *RunState, step Step) (err error) {
	stepState := state.GetStep(step.ID())
	if stepState == nil {
		return NewFatalError("step state not found", fmt.Errorf("step %s", step.ID()))
	}

	if err := step.Validate(state); err != nil {
		stepState.Fail(err)
		return WrapError(err, step.ID())
	}

	timeout := m.config.GetStepTimeout(step.ID())
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stepCtx, span := m.tracer.TraceStep(stepCtx, state.ID, step.ID())
	defer span.End()
	defer func(start time.Time) {
		m.tracer.RecordStepCompletion(stepCtx, span, step.ID(), time.Since(start), err)
	}(time.Now())

	stepState.Start()
	execErr := step.Execute(stepCtx, state)
	if execErr == nil {
		stepState.Complete()
		m.logStepComplete(ctx, state.ID, step.ID(), stepState.Duration())
		return nil
	}

	if stepCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		err = NewTimeoutError(step.ID(), timeout.String())
	} else {
		err = WrapError(execErr, step.ID())
	}
	stepState.Fail(err)
	return err
}

// skipRemaining marks every pending step from index from onwards as skipped
func (m *Manager) skipRemaining(ctx context.Context, state *RunState, from int, reason string) {
	for _, step := range m.steps[from:] {
		s := state.GetStep(step.ID())
		if s != nil && s.GetStatus() == StepStatusPending {
			s.Skip(reason)
			m.logStepSkipped(ctx, state.ID, step.ID(), reason)
		}
	}
}

// Response summarizes a finished run
func Response(state *RunState) *RunResponse {
	resp := &RunResponse{
		ID:         state.ID,
		Mode:       state.Mode,
		Status:     state.GetStatus(),
		Duration:   state.Duration(),
		Steps:      state.Steps,
		Rejections: state.Quality.CountsByReason(),
	}
	if state.Schema != nil {
		resp.Tables = state.Schema.Counts()
	}
	if state.Error != nil {
		resp.Error = state.Error.Error()
	}
	return resp
}

// StepOrder returns the step states of a response in execution order
func (r *RunResponse) StepOrder(ids []string) []*StepState {
	out := make([]*StepState, 0, len(ids))
	for _, id := range ids {
		if s, ok := r.Steps[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

// FailedStepIDs returns the sorted IDs of the failed steps
func (r *RunResponse) FailedStepIDs() []string {
	var ids []string
	for id, s := range r.Steps {
		if s.GetStatus() == StepStatusFailed {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
