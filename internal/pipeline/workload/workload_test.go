package workload

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

type counts struct {
	active, pending, overdue int
}

type fakeCounts struct {
	mu       sync.Mutex
	byAgent  map[uuid.UUID]counts
	failFor  map[uuid.UUID]bool
	stagesIn [][]string
}

func newFakeCounts() *fakeCounts {
	return &fakeCounts{byAgent: map[uuid.UUID]counts{}, failFor: map[uuid.UUID]bool{}}
}

func (f *fakeCounts) CountActiveLeads(_ context.Context, agentID uuid.UUID, activeStages []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stagesIn = append(f.stagesIn, activeStages)
	if f.failFor[agentID] {
		return 0, errors.New("connection reset")
	}
	return f.byAgent[agentID].active, nil
}

func (f *fakeCounts) CountTasksByStatus(_ context.Context, agentID uuid.UUID, status domain.TaskStatus) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[agentID] {
		return 0, errors.New("connection reset")
	}
	c := f.byAgent[agentID]
	switch status {
	case domain.TaskStatusPending:
		return c.pending, nil
	case domain.TaskStatusOverdue:
		return c.overdue, nil
	}
	return 0, nil
}

func agentWith(f *fakeCounts, c counts) domain.Agent {
	a := domain.Agent{ID: uuid.New(), IsActive: true, IsStaff: true}
	f.byAgent[a.ID] = c
	return a
}

var activeStages = []string{domain.StageLead, domain.StageNeedsAnalysis, domain.StageOfferSent, domain.StageNegotiation}

func TestComputeScore(t *testing.T) {
	f := newFakeCounts()
	a := agentWith(f, counts{active: 3, pending: 2, overdue: 1})

	score, err := NewScorer(f, activeStages).ComputeScore(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, 11, score.Score)
	assert.Equal(t, 3, score.ActiveLeads)
	assert.Equal(t, 2, score.PendingTasks)
	assert.Equal(t, 1, score.OverdueTasks)
	assert.Equal(t, activeStages, f.stagesIn[0])
}

func TestComputeScoreCustomWeights(t *testing.T) {
	f := newFakeCounts()
	a := agentWith(f, counts{active: 3, pending: 2, overdue: 1})

	score, err := NewScorer(f, activeStages, WithWeights(domain.WorkloadWeights{ActiveLeads: 1, PendingTasks: 1, OverdueTasks: 1})).
		ComputeScore(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, 6, score.Score)
}

func TestComputeScoreWrapsRepositoryRead(t *testing.T) {
	f := newFakeCounts()
	a := agentWith(f, counts{})
	f.failFor[a.ID] = true

	_, err := NewScorer(f, activeStages).ComputeScore(context.Background(), a)
	assert.ErrorIs(t, err, domain.ErrRepositoryRead)
}

func TestSelectAssigneePicksLowestScore(t *testing.T) {
	f := newFakeCounts()
	a := agentWith(f, counts{active: 3, pending: 2, overdue: 1}) // 11
	b := agentWith(f, counts{active: 4, pending: 3})             // 11
	c := agentWith(f, counts{active: 2, pending: 3})             // 7

	selected, err := NewSelector(NewScorer(f, activeStages)).SelectAssignee(context.Background(), []domain.Agent{a, b, c})
	require.NoError(t, err)
	assert.Equal(t, c.ID, selected.ID)
}

func TestSelectAssigneeEmptyCandidates(t *testing.T) {
	_, err := NewSelector(NewScorer(newFakeCounts(), activeStages)).SelectAssignee(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrNoEligibleAgent)
}

func TestSelectAssigneeTieIsDeterministic(t *testing.T) {
	f := newFakeCounts()
	a := agentWith(f, counts{active: 1})
	b := agentWith(f, counts{active: 1})
	sel := NewSelector(NewScorer(f, activeStages))

	first, err := sel.SelectAssignee(context.Background(), []domain.Agent{a, b})
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := sel.SelectAssignee(context.Background(), []domain.Agent{b, a})
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)
	}
}

func TestTiePrefersLeastRecentlyAssigned(t *testing.T) {
	f := newFakeCounts()
	now := time.Now()
	earlier := now.Add(-time.Hour)

	recent := agentWith(f, counts{active: 1})
	recent.LastAssignedAt = &now
	older := agentWith(f, counts{active: 1})
	older.LastAssignedAt = &earlier
	never := agentWith(f, counts{active: 1})

	ranking := NewSelector(NewScorer(f, activeStages)).Rank(context.Background(), []domain.Agent{recent, older, never})
	require.Len(t, ranking.Scores, 3)
	assert.Equal(t, never.ID, ranking.Scores[0].Agent.ID)
	assert.Equal(t, older.ID, ranking.Scores[1].Agent.ID)
	assert.Equal(t, recent.ID, ranking.Scores[2].Agent.ID)
}

func TestFailedAgentIsExcludedNotFatal(t *testing.T) {
	f := newFakeCounts()
	broken := agentWith(f, counts{})
	f.failFor[broken.ID] = true
	busy := agentWith(f, counts{active: 5})

	sel := NewSelector(NewScorer(f, activeStages, WithConcurrency(1)))
	selected, err := sel.SelectAssignee(context.Background(), []domain.Agent{broken, busy})
	require.NoError(t, err)
	assert.Equal(t, busy.ID, selected.ID)

	ranking := sel.Rank(context.Background(), []domain.Agent{broken, busy})
	require.Len(t, ranking.Failures, 1)
	assert.Equal(t, broken.ID, ranking.Failures[0].AgentID)
	assert.ErrorIs(t, ranking.Failures[0].Err, domain.ErrRepositoryRead)
}

func TestAllAgentsFailing(t *testing.T) {
	f := newFakeCounts()
	a := agentWith(f, counts{})
	b := agentWith(f, counts{})
	f.failFor[a.ID] = true
	f.failFor[b.ID] = true

	_, err := NewSelector(NewScorer(f, activeStages)).SelectAssignee(context.Background(), []domain.Agent{a, b})
	assert.ErrorIs(t, err, domain.ErrRepositoryRead)
	assert.NotErrorIs(t, err, domain.ErrNoEligibleAgent)
}

func TestComputeScoresKeepsInputOrder(t *testing.T) {
	f := newFakeCounts()
	agents := []domain.Agent{
		agentWith(f, counts{active: 4}),
		agentWith(f, counts{active: 1}),
		agentWith(f, counts{active: 3}),
	}

	scores, failures := NewScorer(f, activeStages, WithConcurrency(3)).ComputeScores(context.Background(), agents)
	assert.Empty(t, failures)
	require.Len(t, scores, 3)
	for i := range agents {
		assert.Equal(t, agents[i].ID, scores[i].Agent.ID)
	}
}
