package transport

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs
type TransitionRequest struct {
	ToStage string `json:"toStage" validate:"required,max=64,stage_name"`
}

type AssignRequest struct {
	IncludeInactive bool        `json:"includeInactive"`
	IncludeNonStaff bool        `json:"includeNonStaff"`
	AgentIDs        []uuid.UUID `json:"agentIds,omitempty" validate:"omitempty,max=200"`
	// Async hands the assignment to the background worker.
	Async bool `json:"async"`
}

type ReassignRequest struct {
	AgentID uuid.UUID `json:"agentId" validate:"required"`
}

type WorkloadQuery struct {
	IncludeInactive bool   `form:"includeInactive"`
	IncludeNonStaff bool   `form:"includeNonStaff"`
	AgentIDs        string `form:"agentIds"`
	Limit           int    `form:"limit" validate:"min=0,max=500"`
}

// Response DTOs
type StageResponse struct {
	Name          string   `json:"name"`
	Ordinal       int      `json:"ordinal"`
	Category      string   `json:"category"`
	Prerequisites []string `json:"prerequisites,omitempty"`
}

type StageListResponse struct {
	Stages []StageResponse `json:"stages"`
}

type CheckFailureResponse struct {
	CheckID string `json:"checkId"`
	Error   string `json:"error"`
}

type ValidationResponse struct {
	LeadID    uuid.UUID              `json:"leadId"`
	FromStage string                 `json:"fromStage"`
	ToStage   string                 `json:"toStage"`
	IsValid   bool                   `json:"isValid"`
	Errors    []string               `json:"errors"`
	Failures  []CheckFailureResponse `json:"failures,omitempty"`
}

type LeadResponse struct {
	ID              uuid.UUID  `json:"id"`
	Stage           string     `json:"stage"`
	Phone           string     `json:"phone,omitempty"`
	Email           string     `json:"email,omitempty"`
	AssignedAgentID *uuid.UUID `json:"assignedAgentId,omitempty"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

type TransitionResponse struct {
	Committed  bool               `json:"committed"`
	Validation ValidationResponse `json:"validation"`
	Lead       *LeadResponse      `json:"lead,omitempty"`
}

type StageChangeResponse struct {
	FromStage string    `json:"fromStage"`
	ToStage   string    `json:"toStage"`
	ActorID   uuid.UUID `json:"actorId"`
	ChangedAt time.Time `json:"changedAt"`
}

type StageHistoryResponse struct {
	Items []StageChangeResponse `json:"items"`
}

type WorkloadScoreResponse struct {
	AgentID        uuid.UUID  `json:"agentId"`
	AgentName      string     `json:"agentName"`
	ActiveLeads    int        `json:"activeLeads"`
	PendingTasks   int        `json:"pendingTasks"`
	OverdueTasks   int        `json:"overdueTasks"`
	Score          int        `json:"score"`
	LastAssignedAt *time.Time `json:"lastAssignedAt,omitempty"`
}

type ScoreFailureResponse struct {
	AgentID uuid.UUID `json:"agentId"`
	Error   string    `json:"error"`
}

type WorkloadResponse struct {
	Items    []WorkloadScoreResponse `json:"items"`
	Failures []ScoreFailureResponse  `json:"failures,omitempty"`
}

type AssignmentResponse struct {
	SubjectID uuid.UUID `json:"subjectId"`
	AgentID   uuid.UUID `json:"agentId"`
	Score     *int      `json:"score,omitempty"`
	Queued    bool      `json:"queued"`
}
