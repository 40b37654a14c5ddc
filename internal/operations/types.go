package operations

import (
	"time"

	"cohortetl/pkg/contracts/domain"
)

// Step identifiers in execution order
const (
	StepIDLoad       = "load"
	StepIDResolve    = "resolve"
	StepIDTransform  = "transform"
	StepIDStatus     = "status"
	StepIDDimensions = "dimensions"
	StepIDAssemble   = "assemble"
	StepIDPublish    = "publish"
)

// Step names
const (
	StepNameLoad       = "Source Loading"
	StepNameResolve    = "Identity Resolution"
	StepNameTransform  = "Fact Transformation"
	StepNameStatus     = "Status Resolution"
	StepNameDimensions = "Dimension Building"
	StepNameAssemble   = "Fact Assembly"
	StepNamePublish    = "Publishing"
)

// Default timeouts
const (
	DefaultStepTimeout    = 30 * time.Minute
	DefaultLoadTimeout    = 60 * time.Minute
	DefaultPublishTimeout = 15 * time.Minute
)

// RunMode selects how far a run goes
type RunMode string

const (
	// ModeRun executes every step and publishes the tables
	ModeRun RunMode = "run"
	// ModeValidate stops after assembly; nothing is written
	ModeValidate RunMode = "validate"
)

// RunRequest represents a request to execute one refresh
type RunRequest struct {
	ID   string  `json:"id"`
	Mode RunMode `json:"mode"`
}

// RunResponse represents the outcome of one refresh
type RunResponse struct {
	ID         string                    `json:"id"`
	Mode       RunMode                   `json:"mode"`
	Status     RunStatus                 `json:"status"`
	Duration   time.Duration             `json:"duration"`
	Steps      map[string]*StepState     `json:"steps"`
	Tables     map[string]int            `json:"tables,omitempty"`
	Rejections map[domain.ReasonCode]int `json:"rejections,omitempty"`
	Error      string                    `json:"error,omitempty"`
}
