package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// CheckFailure records a prerequisite check that could not be evaluated
// because one of its lookups failed.
type CheckFailure struct {
	CheckID string
	Err     error
}

// ValidationResult is produced fresh for every transition validation.
type ValidationResult struct {
	IsValid bool
	Errors  []string
	// Failures lists checks whose lookups failed; each also contributes an
	// entry to Errors so the transition is never accepted unverified.
	Failures []CheckFailure
	// Actor is the user that requested the move. Validation does not use it
	// yet; it is carried so callers can audit the request.
	Actor uuid.UUID
}

// InvalidTransitionMessage is the error reported for a move that is not an edge of the graph.
func InvalidTransitionMessage(fromStage, toStage string) string {
	return fmt.Sprintf("Invalid transition from %s to %s.", fromStage, toStage)
}

// UnverifiedCheckMessage is the error reported for a check whose lookup failed.
func UnverifiedCheckMessage(checkID string) string {
	return fmt.Sprintf("Prerequisite %q could not be verified, please retry.", checkID)
}
