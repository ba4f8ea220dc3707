package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStaleTransition is returned by a stage commit when the lead's current
	// stage no longer matches the stage the transition was validated against.
	ErrStaleTransition = errors.New("lead stage changed since validation")
	// ErrNoEligibleAgent is returned when there is nobody to assign work to.
	ErrNoEligibleAgent = errors.New("no eligible agent")
	// ErrRepositoryRead marks a failed dependency lookup.
	ErrRepositoryRead = errors.New("repository read failed")
	// ErrAlreadyAssigned is returned when an automatic assignment finds the
	// lead or task already owned by an agent.
	ErrAlreadyAssigned = errors.New("already assigned")
	// ErrAgentIneligible is returned when a manual assignment names an agent
	// who is inactive or not staff.
	ErrAgentIneligible = errors.New("agent is not eligible for assignment")

	ErrLeadNotFound  = errors.New("lead not found")
	ErrTaskNotFound  = errors.New("task not found")
	ErrAgentNotFound = errors.New("agent not found")
)

// ConfigurationError reports a misconfigured pipeline: an unknown stage,
// a malformed edge or an unregistered prerequisite check. It indicates a bad
// deployment rather than a user error.
type ConfigurationError struct {
	Stage  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("pipeline configuration: stage %q: %s", e.Stage, e.Reason)
	}
	return "pipeline configuration: " + e.Reason
}

func newConfigurationError(stage, reason string) *ConfigurationError {
	return &ConfigurationError{Stage: stage, Reason: reason}
}

func unknownStage(name string) *ConfigurationError {
	return newConfigurationError(name, "unknown stage")
}

// NewConfigurationError is used by packages that assemble the pipeline
// outside of the graph itself (definition loading, check catalogs).
func NewConfigurationError(stage, reason string) *ConfigurationError {
	return newConfigurationError(stage, reason)
}

// IsConfigurationError reports whether err is or wraps a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
