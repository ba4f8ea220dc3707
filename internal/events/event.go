// Package events defines the pipeline's domain events. The bus itself lives
// in platform/events.
package events

import (
	"sales_pipeline_backend/internal/pipeline/domain"
	"sales_pipeline_backend/platform/events"

	"github.com/google/uuid"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

var NewBaseEvent = events.NewBaseEvent

// LeadStageChanged is published after a stage move has been committed.
type LeadStageChanged struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	FromStage string    `json:"fromStage"`
	ToStage   string    `json:"toStage"`
	ActorID   uuid.UUID `json:"actorId"`
}

func (e LeadStageChanged) EventName() string { return "lead.stage_changed" }

// LeadAssigned is published when a lead gets an owner, automatically or by an admin.
type LeadAssigned struct {
	BaseEvent
	LeadID          uuid.UUID  `json:"leadId"`
	AgentID         uuid.UUID  `json:"agentId"`
	PreviousAgentID *uuid.UUID `json:"previousAgentId,omitempty"`
	Score           *int       `json:"score,omitempty"`
	Manual          bool       `json:"manual"`
}

func (e LeadAssigned) EventName() string { return "lead.assigned" }

// TaskAssigned is published when a task gets an owner.
type TaskAssigned struct {
	BaseEvent
	TaskID  uuid.UUID `json:"taskId"`
	AgentID uuid.UUID `json:"agentId"`
	Score   int       `json:"score"`
}

func (e TaskAssigned) EventName() string { return "task.assigned" }

// AssignmentCriteria is the candidate pool of a queued assignment, the wire
// form of domain.EligibilityFilter.
type AssignmentCriteria struct {
	IncludeInactive bool        `json:"includeInactive,omitempty"`
	IncludeNonStaff bool        `json:"includeNonStaff,omitempty"`
	AgentIDs        []uuid.UUID `json:"agentIds,omitempty"`
}

func CriteriaFromFilter(f domain.EligibilityFilter) AssignmentCriteria {
	return AssignmentCriteria{
		IncludeInactive: f.IncludeInactive,
		IncludeNonStaff: f.IncludeNonStaff,
		AgentIDs:        f.AgentIDs,
	}
}

func (c AssignmentCriteria) Filter() domain.EligibilityFilter {
	return domain.EligibilityFilter{
		IncludeInactive: c.IncludeInactive,
		IncludeNonStaff: c.IncludeNonStaff,
		AgentIDs:        c.AgentIDs,
	}
}

// LeadAssignmentRequested asks the background worker to pick an owner for a lead.
type LeadAssignmentRequested struct {
	BaseEvent
	LeadID   uuid.UUID          `json:"leadId"`
	Criteria AssignmentCriteria `json:"criteria"`
}

func (e LeadAssignmentRequested) EventName() string { return "lead.assignment_requested" }

// TaskAssignmentRequested asks the background worker to pick an owner for a task.
type TaskAssignmentRequested struct {
	BaseEvent
	TaskID   uuid.UUID          `json:"taskId"`
	Criteria AssignmentCriteria `json:"criteria"`
}

func (e TaskAssignmentRequested) EventName() string { return "task.assignment_requested" }

// TasksMarkedOverdue is published by the overdue sweep when it changed anything.
type TasksMarkedOverdue struct {
	BaseEvent
	Count int `json:"count"`
}

func (e TasksMarkedOverdue) EventName() string { return "task.marked_overdue" }
