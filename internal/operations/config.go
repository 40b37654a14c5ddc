package operations

import (
	"time"
)

// Config represents the step execution configuration
type Config struct {
	// Step-specific timeouts
	StepTimeouts map[string]time.Duration `json:"step_timeouts"`

	// Steps never executed, marked skipped instead
	SkipSteps map[string]bool `json:"skip_steps"`
}

// NewConfig returns the default execution configuration
func NewConfig() *Config {
	return &Config{
		StepTimeouts: map[string]time.Duration{
			StepIDLoad:    DefaultLoadTimeout,
			StepIDPublish: DefaultPublishTimeout,
		},
		SkipSteps: make(map[string]bool),
	}
}

// ForMode returns the default configuration for a run mode
func ForMode(mode RunMode) *Config {
	cfg := NewConfig()
	if mode == ModeValidate {
		cfg.SkipSteps[StepIDPublish] = true
	}
	return cfg
}

// GetStepTimeout returns the timeout for a specific step
func (c *Config) GetStepTimeout(stepID string) time.Duration {
	if timeout, ok := c.StepTimeouts[stepID]; ok {
		return timeout
	}
	return DefaultStepTimeout
}

// SetStepTimeout sets the timeout for a specific step
func (c *Config) SetStepTimeout(stepID string, timeout time.Duration) {
	if c.StepTimeouts == nil {
		c.StepTimeouts = make(map[string]time.Duration)
	}
	c.StepTimeouts[stepID] = timeout
}

// ShouldSkip reports whether a step is disabled
func (c *Config) ShouldSkip(stepID string) bool {
	return c.SkipSteps[stepID]
}
