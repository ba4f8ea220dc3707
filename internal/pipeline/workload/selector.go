package workload

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"sales_pipeline_backend/internal/pipeline/domain"
)

// Ranking is the outcome of scoring a set of candidates.
type Ranking struct {
	// Scores is ordered least loaded first.
	Scores []domain.WorkloadScore
	// Failures lists agents that could not be scored.
	Failures []domain.ScoreFailure
}

// Best returns the least loaded agent, if any could be scored.
func (r Ranking) Best() (domain.WorkloadScore, bool) {
	if len(r.Scores) == 0 {
		return domain.WorkloadScore{}, false
	}
	return r.Scores[0], true
}

// Selector picks the assignee for new work among eligible agents.
type Selector struct {
	scorer *Scorer
}

// NewSelector creates a selector backed by scorer.
func NewSelector(scorer *Scorer) *Selector {
	return &Selector{scorer: scorer}
}

// Scorer exposes the underlying scorer.
func (s *Selector) Scorer() *Scorer {
	return s.scorer
}

// Rank scores the agents and orders them ascending. Equal scores are broken
// by the least recently assigned agent (never assigned first), then by the
// agent id so the order is deterministic.
func (s *Selector) Rank(ctx context.Context, agents []domain.Agent) Ranking {
	scores, failures := s.scorer.ComputeScores(ctx, agents)
	slices.SortStableFunc(scores, compareScores)
	return Ranking{Scores: scores, Failures: failures}
}

// SelectAssignee returns the agent with the lowest workload score.
// It fails with domain.ErrNoEligibleAgent when agents is empty and with
// domain.ErrRepositoryRead when no agent could be scored.
func (s *Selector) SelectAssignee(ctx context.Context, agents []domain.Agent) (domain.Agent, error) {
	best, _, err := s.Select(ctx, agents)
	if err != nil {
		return domain.Agent{}, err
	}
	return best.Agent, nil
}

// Select is SelectAssignee that also returns the winning score and the full
// ranking, for callers that report or log them.
func (s *Selector) Select(ctx context.Context, agents []domain.Agent) (domain.WorkloadScore, Ranking, error) {
	if len(agents) == 0 {
		return domain.WorkloadScore{}, Ranking{}, domain.ErrNoEligibleAgent
	}

	ranking := s.Rank(ctx, agents)
	best, ok := ranking.Best()
	if !ok {
		errs := make([]error, 0, len(ranking.Failures))
		for _, f := range ranking.Failures {
			errs = append(errs, fmt.Errorf("agent %s: %w", f.AgentID, f.Err))
		}
		return domain.WorkloadScore{}, ranking, fmt.Errorf("%w: no agent could be scored: %w", domain.ErrRepositoryRead, errors.Join(errs...))
	}
	return best, ranking, nil
}

func compareScores(a, b domain.WorkloadScore) int {
	if a.Score != b.Score {
		if a.Score < b.Score {
			return -1
		}
		return 1
	}

	la, lb := a.Agent.LastAssignedAt, b.Agent.LastAssignedAt
	switch {
	case la == nil && lb != nil:
		return -1
	case la != nil && lb == nil:
		return 1
	case la != nil && lb != nil && !la.Equal(*lb):
		return la.Compare(*lb)
	}

	return strings.Compare(a.Agent.ID.String(), b.Agent.ID.String())
}
