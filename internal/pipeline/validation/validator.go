// Package validation answers whether a lead may move between two stages.
package validation

import (
	"context"

	"sales_pipeline_backend/internal/pipeline/domain"
	"sales_pipeline_backend/internal/pipeline/prerequisite"

	"github.com/google/uuid"
)

// Validator composes the stage graph and the prerequisite registry. It holds
// no mutable state and may be shared across goroutines.
type Validator struct {
	graph    *domain.StageGraph
	registry *prerequisite.Registry
}

// New creates a transition validator.
func New(graph *domain.StageGraph, registry *prerequisite.Registry) *Validator {
	return &Validator{graph: graph, registry: registry}
}

// ValidateStageTransition evaluates every rule for moving lead from fromStage
// to toStage and accumulates all violations instead of stopping at the first.
// Rule violations are reported in the result; the error is reserved for
// configuration problems such as an unknown stage name.
//
// The validation is a read at call time. Committing the move must compare the
// lead's stage against fromStage atomically.
func (v *Validator) ValidateStageTransition(ctx context.Context, lead domain.Lead, fromStage, toStage string, actor uuid.UUID) (domain.ValidationResult, error) {
	result := domain.ValidationResult{Errors: []string{}, Actor: actor}

	legal, err := v.graph.IsLegalEdge(fromStage, toStage)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	if !legal {
		result.Errors = append(result.Errors, domain.InvalidTransitionMessage(fromStage, toStage))
	}

	for _, check := range v.registry.ChecksFor(toStage) {
		msg, err := check.Evaluate(ctx, lead)
		if err != nil {
			result.Failures = append(result.Failures, domain.CheckFailure{CheckID: check.ID(), Err: err})
			result.Errors = append(result.Errors, domain.UnverifiedCheckMessage(check.ID()))
			continue
		}
		if msg != "" {
			result.Errors = append(result.Errors, msg)
		}
	}

	result.IsValid = len(result.Errors) == 0
	return result, nil
}
