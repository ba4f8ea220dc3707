package repository

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"sales_pipeline_backend/internal/pipeline/domain"

	"github.com/google/uuid"
)

type messageKey struct {
	leadID      uuid.UUID
	messageType string
	status      string
}

// Memory is an in-process Repository used by tests and the pipelinectl
// dry-run commands. All methods are safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	leads   map[uuid.UUID]domain.Lead
	agents  map[uuid.UUID]domain.Agent
	tasks   map[uuid.UUID]domain.Task
	msgs    map[messageKey]struct{}
	history []StageChange
	readErr map[uuid.UUID]error
	now     func() time.Time
}

var _ Repository = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		leads:   make(map[uuid.UUID]domain.Lead),
		agents:  make(map[uuid.UUID]domain.Agent),
		tasks:   make(map[uuid.UUID]domain.Task),
		msgs:    make(map[messageKey]struct{}),
		readErr: make(map[uuid.UUID]error),
		now:     time.Now,
	}
}

func (m *Memory) PutLead(lead domain.Lead) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leads[lead.ID] = lead
}

func (m *Memory) PutAgent(agent domain.Agent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agents[agent.ID] = agent
}

func (m *Memory) PutTask(task domain.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[task.ID] = task
}

func (m *Memory) PutMessage(leadID uuid.UUID, messageType, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs[messageKey{leadID, messageType, status}] = struct{}{}
}

// FailCountsFor makes every workload count lookup for agentID return err.
func (m *Memory) FailCountsFor(agentID uuid.UUID, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr[agentID] = err
}

func (m *Memory) GetLead(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lead, ok := m.leads[id]
	if !ok {
		return domain.Lead{}, domain.ErrLeadNotFound
	}
	return lead, nil
}

func (m *Memory) CommitStageChange(_ context.Context, leadID uuid.UUID, fromStage, toStage string, actorID uuid.UUID) (domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lead, ok := m.leads[leadID]
	if !ok {
		return domain.Lead{}, domain.ErrLeadNotFound
	}
	if lead.Stage != fromStage {
		return domain.Lead{}, domain.ErrStaleTransition
	}

	now := m.now()
	lead.Stage = toStage
	lead.UpdatedAt = now
	m.leads[leadID] = lead
	m.history = append(m.history, StageChange{
		ID:        uuid.New(),
		LeadID:    leadID,
		FromStage: fromStage,
		ToStage:   toStage,
		ActorID:   actorID,
		ChangedAt: now,
	})
	return lead, nil
}

func (m *Memory) ListStageHistory(_ context.Context, leadID uuid.UUID) ([]StageChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]StageChange, 0)
	for _, c := range m.history {
		if c.LeadID == leadID {
			items = append(items, c)
		}
	}
	return items, nil
}

func (m *Memory) MessageExists(_ context.Context, leadID uuid.UUID, messageType, status string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.msgs[messageKey{leadID, messageType, status}]
	return ok, nil
}

func (m *Memory) CountActiveLeads(_ context.Context, agentID uuid.UUID, activeStages []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.readErr[agentID]; err != nil {
		return 0, err
	}
	n := 0
	for _, l := range m.leads {
		if l.AssignedAgentID != nil && *l.AssignedAgentID == agentID && slices.Contains(activeStages, l.Stage) {
			n++
		}
	}
	return n, nil
}

func (m *Memory) CountTasksByStatus(_ context.Context, agentID uuid.UUID, status domain.TaskStatus) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.readErr[agentID]; err != nil {
		return 0, err
	}
	n := 0
	for _, t := range m.tasks {
		if t.OwnerID != nil && *t.OwnerID == agentID && t.Status == status {
			n++
		}
	}
	return n, nil
}

func (m *Memory) ListAgents(_ context.Context, filter domain.EligibilityFilter) ([]domain.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]domain.Agent, 0, len(m.agents))
	for _, a := range m.agents {
		if filter.Matches(a) {
			items = append(items, a)
		}
	}
	slices.SortFunc(items, func(a, b domain.Agent) int {
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return items, nil
}

func (m *Memory) GetAgent(_ context.Context, id uuid.UUID) (domain.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return domain.Agent{}, domain.ErrAgentNotFound
	}
	return a, nil
}

func (m *Memory) AssignLead(_ context.Context, leadID, agentID uuid.UUID, override bool) (domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lead, ok := m.leads[leadID]
	if !ok {
		return domain.Lead{}, domain.ErrLeadNotFound
	}
	agent, ok := m.agents[agentID]
	if !ok {
		return domain.Lead{}, domain.ErrAgentNotFound
	}
	if lead.AssignedAgentID != nil && !override {
		return domain.Lead{}, domain.ErrAlreadyAssigned
	}

	now := m.now()
	id := agentID
	lead.AssignedAgentID = &id
	lead.UpdatedAt = now
	m.leads[leadID] = lead
	agent.LastAssignedAt = &now
	m.agents[agentID] = agent
	return lead, nil
}

func (m *Memory) AssignTask(_ context.Context, taskID, agentID uuid.UUID, override bool) (domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[taskID]
	if !ok {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	agent, ok := m.agents[agentID]
	if !ok {
		return domain.Task{}, domain.ErrAgentNotFound
	}
	if task.OwnerID != nil && !override {
		return domain.Task{}, domain.ErrAlreadyAssigned
	}

	now := m.now()
	id := agentID
	task.OwnerID = &id
	task.UpdatedAt = now
	m.tasks[taskID] = task
	agent.LastAssignedAt = &now
	m.agents[agentID] = agent
	return task, nil
}

func (m *Memory) GetTask(_ context.Context, id uuid.UUID) (domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	return t, nil
}

func (m *Memory) MarkOverdueTasks(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, t := range m.tasks {
		if t.Status == domain.TaskStatusPending && t.DueAt.Before(now) {
			t.Status = domain.TaskStatusOverdue
			t.UpdatedAt = m.now()
			m.tasks[id] = t
			n++
		}
	}
	return n, nil
}
