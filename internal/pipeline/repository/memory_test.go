package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sales_pipeline_backend/internal/pipeline/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitStageChangeConcurrentCommitsOnlyOneWins(t *testing.T) {
	repo := NewMemory()
	lead := domain.Lead{ID: uuid.New(), Stage: domain.StageNegotiation}
	repo.PutLead(lead)

	targets := []string{domain.StageContractSigned, domain.StageLost}
	errs := make([]error, len(targets))

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i, to := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, errs[i] = repo.CommitStageChange(context.Background(), lead.ID, domain.StageNegotiation, to, uuid.New())
		}()
	}
	close(start)
	wg.Wait()

	succeeded, stale := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrStaleTransition):
			stale++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, stale)

	history, err := repo.ListStageHistory(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestCommitStageChangeUnknownLead(t *testing.T) {
	_, err := NewMemory().CommitStageChange(context.Background(), uuid.New(), domain.StageLead, domain.StageNeedsAnalysis, uuid.New())
	assert.ErrorIs(t, err, domain.ErrLeadNotFound)
}

func TestCountActiveLeadsOnlyCountsActiveStages(t *testing.T) {
	repo := NewMemory()
	agent := uuid.New()
	for _, stage := range []string{domain.StageLead, domain.StageOfferSent, domain.StageContractSigned, domain.StageLost} {
		repo.PutLead(domain.Lead{ID: uuid.New(), Stage: stage, AssignedAgentID: &agent})
	}
	repo.PutLead(domain.Lead{ID: uuid.New(), Stage: domain.StageLead})

	n, err := repo.CountActiveLeads(context.Background(), agent, []string{domain.StageLead, domain.StageOfferSent})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestAssignLeadRefusesDoubleAssignment(t *testing.T) {
	repo := NewMemory()
	first := domain.Agent{ID: uuid.New(), IsActive: true, IsStaff: true}
	second := domain.Agent{ID: uuid.New(), IsActive: true, IsStaff: true}
	repo.PutAgent(first)
	repo.PutAgent(second)
	lead := domain.Lead{ID: uuid.New(), Stage: domain.StageLead}
	repo.PutLead(lead)

	got, err := repo.AssignLead(context.Background(), lead.ID, first.ID, false)
	require.NoError(t, err)
	require.NotNil(t, got.AssignedAgentID)
	assert.Equal(t, first.ID, *got.AssignedAgentID)

	stamped, err := repo.GetAgent(context.Background(), first.ID)
	require.NoError(t, err)
	assert.NotNil(t, stamped.LastAssignedAt)

	_, err = repo.AssignLead(context.Background(), lead.ID, second.ID, false)
	assert.ErrorIs(t, err, domain.ErrAlreadyAssigned)

	got, err = repo.AssignLead(context.Background(), lead.ID, second.ID, true)
	require.NoError(t, err)
	assert.Equal(t, second.ID, *got.AssignedAgentID)
}

func TestAssignTaskUnknownAgent(t *testing.T) {
	repo := NewMemory()
	task := domain.Task{ID: uuid.New(), Status: domain.TaskStatusPending}
	repo.PutTask(task)

	_, err := repo.AssignTask(context.Background(), task.ID, uuid.New(), false)
	assert.ErrorIs(t, err, domain.ErrAgentNotFound)
}

func TestMarkOverdueTasks(t *testing.T) {
	repo := NewMemory()
	now := time.Now()
	owner := uuid.New()
	repo.PutTask(domain.Task{ID: uuid.New(), OwnerID: &owner, Status: domain.TaskStatusPending, DueAt: now.Add(-time.Hour)})
	repo.PutTask(domain.Task{ID: uuid.New(), OwnerID: &owner, Status: domain.TaskStatusPending, DueAt: now.Add(time.Hour)})
	repo.PutTask(domain.Task{ID: uuid.New(), OwnerID: &owner, Status: domain.TaskStatusCompleted, DueAt: now.Add(-time.Hour)})

	n, err := repo.MarkOverdueTasks(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	overdue, err := repo.CountTasksByStatus(context.Background(), owner, domain.TaskStatusOverdue)
	require.NoError(t, err)
	assert.Equal(t, 1, overdue)
}

func TestListAgentsAppliesFilter(t *testing.T) {
	repo := NewMemory()
	staff := domain.Agent{ID: uuid.New(), IsActive: true, IsStaff: true}
	inactive := domain.Agent{ID: uuid.New(), IsActive: false, IsStaff: true}
	external := domain.Agent{ID: uuid.New(), IsActive: true, IsStaff: false}
	repo.PutAgent(staff)
	repo.PutAgent(inactive)
	repo.PutAgent(external)

	agents, err := repo.ListAgents(context.Background(), domain.EligibilityFilter{})
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, staff.ID, agents[0].ID)

	agents, err = repo.ListAgents(context.Background(), domain.EligibilityFilter{IncludeInactive: true, IncludeNonStaff: true})
	require.NoError(t, err)
	assert.Len(t, agents, 3)
}
