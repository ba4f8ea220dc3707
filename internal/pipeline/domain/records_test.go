package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestWorkloadScoreFormula(t *testing.T) {
	w := DefaultWorkloadWeights()
	if got := w.Score(3, 2, 1); got != 11 {
		t.Fatalf("expected 3*2+2*1+1*3=11, got %d", got)
	}
	if got := w.Score(0, 0, 0); got != 0 {
		t.Fatalf("expected 0 for an idle agent, got %d", got)
	}

	retuned := WorkloadWeights{ActiveLeads: 1, PendingTasks: 1, OverdueTasks: 10}
	if got := retuned.Score(3, 2, 1); got != 15 {
		t.Fatalf("expected retuned score 15, got %d", got)
	}
}

func TestHasContactDetails(t *testing.T) {
	cases := []struct {
		phone, email string
		want         bool
	}{
		{"+31612345678", "a@example.com", true},
		{"", "a@example.com", false},
		{"+31612345678", "", false},
		{"   ", "a@example.com", false},
	}
	for _, tc := range cases {
		lead := Lead{Phone: tc.phone, Email: tc.email}
		if got := lead.HasContactDetails(); got != tc.want {
			t.Errorf("HasContactDetails(%q, %q) = %v, want %v", tc.phone, tc.email, got, tc.want)
		}
	}
}

func TestEligibilityFilterMatches(t *testing.T) {
	id := uuid.New()
	staff := Agent{ID: id, IsActive: true, IsStaff: true}
	inactive := Agent{ID: uuid.New(), IsActive: false, IsStaff: true}
	external := Agent{ID: uuid.New(), IsActive: true, IsStaff: false}

	if !(EligibilityFilter{}).Matches(staff) {
		t.Error("default filter should accept active staff")
	}
	if (EligibilityFilter{}).Matches(inactive) {
		t.Error("default filter should reject inactive agents")
	}
	if (EligibilityFilter{}).Matches(external) {
		t.Error("default filter should reject non-staff agents")
	}
	if !(EligibilityFilter{IncludeInactive: true}).Matches(inactive) {
		t.Error("IncludeInactive should accept inactive agents")
	}
	if (EligibilityFilter{AgentIDs: []uuid.UUID{uuid.New()}}).Matches(staff) {
		t.Error("AgentIDs should restrict the candidate set")
	}
	if !(EligibilityFilter{AgentIDs: []uuid.UUID{id}}).Matches(staff) {
		t.Error("AgentIDs should accept listed agents")
	}
}
