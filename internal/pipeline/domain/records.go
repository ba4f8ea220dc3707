package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Lead is the slice of a lead record the rules engine reads. Stage only
// changes through a validated, committed transition.
type Lead struct {
	ID              uuid.UUID
	Stage           string
	Phone           string
	Email           string
	AssignedAgentID *uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasContactDetails reports whether both phone and email are filled in.
func (l Lead) HasContactDetails() bool {
	return strings.TrimSpace(l.Phone) != "" && strings.TrimSpace(l.Email) != ""
}

// Agent is a user that can own leads and tasks.
type Agent struct {
	ID             uuid.UUID
	Name           string
	Email          string
	IsActive       bool
	IsStaff        bool
	LastAssignedAt *time.Time
}

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusOverdue   TaskStatus = "overdue"
)

// IsKnownTaskStatus reports whether s is a valid task status.
func IsKnownTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusPending, TaskStatusCompleted, TaskStatusOverdue:
		return true
	}
	return false
}

// Task is a unit of follow-up work owned by an agent. The overdue status is
// derived by the storage layer from DueAt and consumed as-is.
type Task struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	OwnerID   *uuid.UUID
	Title     string
	Status    TaskStatus
	DueAt     time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message types and statuses recorded by the messaging subsystem.
const (
	MessageTypeOfferSent = "offer_sent"
	MessageStatusSent    = "sent"
)

// EligibilityFilter selects the agents considered for assignment. The zero
// value means active staff members only.
type EligibilityFilter struct {
	IncludeInactive bool
	IncludeNonStaff bool
	AgentIDs        []uuid.UUID
}

// Matches reports whether agent passes the filter.
func (f EligibilityFilter) Matches(agent Agent) bool {
	if !f.IncludeInactive && !agent.IsActive {
		return false
	}
	if !f.IncludeNonStaff && !agent.IsStaff {
		return false
	}
	if len(f.AgentIDs) == 0 {
		return true
	}
	for _, id := range f.AgentIDs {
		if id == agent.ID {
			return true
		}
	}
	return false
}
