package operations

import (
	"sync"
	"time"

	"cohortetl/internal/config"
	"cohortetl/internal/identity"
	"cohortetl/internal/quality"
	"cohortetl/internal/transform"
	"cohortetl/pkg/contracts/domain"
)

// RunStatus represents the overall run status
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// RunState carries one refresh from loading to publishing.
// Each artifact is written by exactly one step and read-only afterwards.
type RunState struct {
	mu sync.RWMutex

	ID        string
	Mode      RunMode
	Status    RunStatus
	StartTime time.Time
	EndTime   *time.Time
	Steps     map[string]*StepState
	Error     error

	Config  *config.Config
	Quality *quality.Collector

	Batch         *domain.Batch
	Directory     *identity.Directory
	Attendance    transform.AttendanceResult
	Assessments   transform.AssessmentResult
	Participation transform.ParticipationResult
	Statuses      map[string]domain.LearnerStatus
	Identities    []domain.LearnerIdentity
	Learners      []domain.LearnerDim
	Dates         []domain.CalendarDate
	Weeks         []domain.WeekDim
	Schema        *domain.StarSchema
}

// NewRunState creates a new run state
func NewRunState(id string, mode RunMode, cfg *config.Config) *RunState {
	return &RunState{
		ID:        id,
		Mode:      mode,
		Status:    RunStatusPending,
		StartTime: time.Now(),
		Steps:     make(map[string]*StepState),
		Config:    cfg,
		Quality:   quality.NewCollector(),
	}
}

// Start marks the run as running
func (r *RunState) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = RunStatusRunning
	r.StartTime = time.Now()
}

// Complete marks the run as completed
func (r *RunState) Complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.EndTime = &now
	r.Status = RunStatusCompleted
}

// Fail marks the run as failed
func (r *RunState) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.EndTime = &now
	r.Status = RunStatusFailed
	r.Error = err
}

// Cancel marks the run as cancelled
func (r *RunState) Cancel(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.EndTime = &now
	r.Status = RunStatusCancelled
	r.Error = err
}

// GetStep returns the state of a specific step
func (r *RunState) GetStep(stepID string) *StepState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Steps[stepID]
}

// SetStep updates the state of a specific step
func (r *RunState) SetStep(stepID string, state *StepState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Steps[stepID] = state
}

// GetStatus returns the current run status
func (r *RunState) GetStatus() RunStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Status
}

// Duration returns the duration of the run
func (r *RunState) Duration() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.EndTime != nil {
		return r.EndTime.Sub(r.StartTime)
	}
	return time.Since(r.StartTime)
}

// Cohorts returns the configured cohort names in configuration order
func (r *RunState) Cohorts() []string {
	if r.Config == nil {
		return nil
	}
	names := make([]string, 0, len(r.Config.Cohorts))
	for _, c := range r.Config.Cohorts {
		names = append(names, c.Name)
	}
	return names
}
