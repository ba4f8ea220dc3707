// Package workload scores agents by their current load and picks the
// assignee for new work.
package workload

import (
	"context"
	"fmt"

	"sales_pipeline_backend/internal/pipeline/domain"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

// CountReader supplies the per-agent counts a score is built from.
type CountReader interface {
	CountActiveLeads(ctx context.Context, agentID uuid.UUID, activeStages []string) (int, error)
	CountTasksByStatus(ctx context.Context, agentID uuid.UUID, status domain.TaskStatus) (int, error)
}

// Scorer computes workload scores. Scores are never cached: every call reads
// the counts as they are now.
type Scorer struct {
	counts       CountReader
	activeStages []string
	weights      domain.WorkloadWeights
	concurrency  int
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithWeights overrides the default workload weights.
func WithWeights(w domain.WorkloadWeights) Option {
	return func(s *Scorer) { s.weights = w }
}

// WithConcurrency bounds how many agents are scored in parallel.
func WithConcurrency(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewScorer creates a scorer. activeStages lists the stages whose leads count
// as open work, normally StageGraph.ActiveStages().
func NewScorer(counts CountReader, activeStages []string, opts ...Option) *Scorer {
	s := &Scorer{
		counts:       counts,
		activeStages: append([]string(nil), activeStages...),
		weights:      domain.DefaultWorkloadWeights(),
		concurrency:  defaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Weights returns the weights in use.
func (s *Scorer) Weights() domain.WorkloadWeights {
	return s.weights
}

// ComputeScore reads the three counts for one agent and applies the weights.
func (s *Scorer) ComputeScore(ctx context.Context, agent domain.Agent) (domain.WorkloadScore, error) {
	active, err := s.counts.CountActiveLeads(ctx, agent.ID, s.activeStages)
	if err != nil {
		return domain.WorkloadScore{}, fmt.Errorf("%w: active leads: %w", domain.ErrRepositoryRead, err)
	}
	pending, err := s.counts.CountTasksByStatus(ctx, agent.ID, domain.TaskStatusPending)
	if err != nil {
		return domain.WorkloadScore{}, fmt.Errorf("%w: pending tasks: %w", domain.ErrRepositoryRead, err)
	}
	overdue, err := s.counts.CountTasksByStatus(ctx, agent.ID, domain.TaskStatusOverdue)
	if err != nil {
		return domain.WorkloadScore{}, fmt.Errorf("%w: overdue tasks: %w", domain.ErrRepositoryRead, err)
	}

	return domain.WorkloadScore{
		Agent:        agent,
		ActiveLeads:  active,
		PendingTasks: pending,
		OverdueTasks: overdue,
		Score:        s.weights.Score(active, pending, overdue),
	}, nil
}

// ComputeScores scores every agent concurrently. An agent whose lookups fail
// is left out of the scores and reported in the failures; the other agents
// are unaffected. Scores keep the order of the input.
func (s *Scorer) ComputeScores(ctx context.Context, agents []domain.Agent) ([]domain.WorkloadScore, []domain.ScoreFailure) {
	type slot struct {
		score domain.WorkloadScore
		err   error
	}
	slots := make([]slot, len(agents))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, agent := range agents {
		g.Go(func() error {
			score, err := s.ComputeScore(gctx, agent)
			slots[i] = slot{score: score, err: err}
			return nil
		})
	}
	_ = g.Wait()

	scores := make([]domain.WorkloadScore, 0, len(agents))
	var failures []domain.ScoreFailure
	for i, sl := range slots {
		if sl.err != nil {
			failures = append(failures, domain.ScoreFailure{AgentID: agents[i].ID, Err: sl.err})
			continue
		}
		scores = append(scores, sl.score)
	}
	return scores, failures
}
