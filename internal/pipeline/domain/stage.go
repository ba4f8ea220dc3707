// Package domain provides the core business rules for the sales pipeline:
// stages, the legal transition graph and the records the rules engine reads.
package domain

// StageCategory groups stages by their role in the sales workflow.
type StageCategory string

const (
	CategoryActive       StageCategory = "active"
	CategoryTerminalWon  StageCategory = "terminal-won"
	CategoryTerminalLost StageCategory = "terminal-lost"
)

var knownCategories = map[StageCategory]struct{}{
	CategoryActive:       {},
	CategoryTerminalWon:  {},
	CategoryTerminalLost: {},
}

// IsKnownCategory reports whether c is one of the supported stage categories.
func IsKnownCategory(c StageCategory) bool {
	_, ok := knownCategories[c]
	return ok
}

// Stage names used by the default pipeline definition.
const (
	StageLead           = "lead"
	StageNeedsAnalysis  = "needs_analysis"
	StageOfferSent      = "offer_sent"
	StageNegotiation    = "negotiation"
	StageContractSigned = "contract_signed"
	StageLost           = "lost"
)

// Stage is a named state in the sales workflow. Stages are seeded from the
// pipeline definition at startup and never change afterwards.
type Stage struct {
	Name     string        `json:"name"`
	Ordinal  int           `json:"ordinal"`
	Category StageCategory `json:"category"`
}

// IsActive returns true when leads in this stage count towards agent workload.
func (s Stage) IsActive() bool {
	return s.Category == CategoryActive
}

// IsTerminal returns true when the stage ends the workflow (won or lost).
func (s Stage) IsTerminal() bool {
	return s.Category == CategoryTerminalWon || s.Category == CategoryTerminalLost
}

// TransitionEdge is a legal move between two stages together with the ordered
// prerequisite check identifiers that must pass before it may be taken.
type TransitionEdge struct {
	From          string   `json:"from"`
	To            string   `json:"to"`
	Prerequisites []string `json:"prerequisites,omitempty"`
}
