package repository

import (
	"context"
	"time"

	"sales_pipeline_backend/internal/pipeline/domain"

	"github.com/google/uuid"
)

// LeadReader provides read-only access to leads.
type LeadReader interface {
	GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error)
}

// StageCommitter persists a validated stage change. The commit succeeds only
// while the lead is still in fromStage; otherwise it returns
// domain.ErrStaleTransition and leaves the lead untouched.
type StageCommitter interface {
	CommitStageChange(ctx context.Context, leadID uuid.UUID, fromStage, toStage string, actorID uuid.UUID) (domain.Lead, error)
}

// StageHistoryReader lists committed stage changes.
type StageHistoryReader interface {
	ListStageHistory(ctx context.Context, leadID uuid.UUID) ([]StageChange, error)
}

// MessageLookup answers whether a message of a given type and status exists.
type MessageLookup interface {
	MessageExists(ctx context.Context, leadID uuid.UUID, messageType, status string) (bool, error)
}

// WorkloadReader supplies the counts a workload score is built from.
type WorkloadReader interface {
	CountActiveLeads(ctx context.Context, agentID uuid.UUID, activeStages []string) (int, error)
	CountTasksByStatus(ctx context.Context, agentID uuid.UUID, status domain.TaskStatus) (int, error)
}

// AgentReader lists the users work can be assigned to.
type AgentReader interface {
	ListAgents(ctx context.Context, filter domain.EligibilityFilter) ([]domain.Agent, error)
	GetAgent(ctx context.Context, id uuid.UUID) (domain.Agent, error)
}

// AssignmentWriter records ownership. Unless override is set, assigning a
// lead that already has an owner fails with domain.ErrAlreadyAssigned.
// A successful assignment stamps the agent's last_assigned_at.
type AssignmentWriter interface {
	AssignLead(ctx context.Context, leadID, agentID uuid.UUID, override bool) (domain.Lead, error)
	AssignTask(ctx context.Context, taskID, agentID uuid.UUID, override bool) (domain.Task, error)
}

// TaskReader provides read-only access to tasks.
type TaskReader interface {
	GetTask(ctx context.Context, id uuid.UUID) (domain.Task, error)
}

// TaskMaintenance flips pending tasks past their due date to overdue.
type TaskMaintenance interface {
	MarkOverdueTasks(ctx context.Context, now time.Time) (int, error)
}

// Repository combines every store the pipeline module needs.
type Repository interface {
	LeadReader
	StageCommitter
	StageHistoryReader
	MessageLookup
	WorkloadReader
	AgentReader
	AssignmentWriter
	TaskReader
	TaskMaintenance
}

// StageChange is one committed stage move.
type StageChange struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	FromStage string
	ToStage   string
	ActorID   uuid.UUID
	ChangedAt time.Time
}
