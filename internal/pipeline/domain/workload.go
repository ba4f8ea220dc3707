package domain

import "github.com/google/uuid"

// WorkloadWeights are the multipliers applied to an agent's counts. They are
// business constants that deployments may retune through configuration.
type WorkloadWeights struct {
	ActiveLeads  int
	PendingTasks int
	OverdueTasks int
}

// DefaultWorkloadWeights returns the standard weighting: an active lead costs
// two points, a pending task one and an overdue task three.
func DefaultWorkloadWeights() WorkloadWeights {
	return WorkloadWeights{ActiveLeads: 2, PendingTasks: 1, OverdueTasks: 3}
}

// Score applies the weights to a set of counts. Lower means less loaded.
func (w WorkloadWeights) Score(activeLeads, pendingTasks, overdueTasks int) int {
	return activeLeads*w.ActiveLeads + pendingTasks*w.PendingTasks + overdueTasks*w.OverdueTasks
}

// WorkloadScore is an agent's workload as computed at call time.
type WorkloadScore struct {
	Agent        Agent
	ActiveLeads  int
	PendingTasks int
	OverdueTasks int
	Score        int
}

// ScoreFailure records an agent excluded from scoring because a count lookup failed.
type ScoreFailure struct {
	AgentID uuid.UUID
	Err     error
}
