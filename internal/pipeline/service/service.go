// Package service implements the pipeline use cases: validating and
// committing stage moves, ranking agents by workload and assigning work.
package service

import (
	"context"
	"errors"
	"time"

	"sales_pipeline_backend/internal/events"
	"sales_pipeline_backend/internal/pipeline/domain"
	"sales_pipeline_backend/internal/pipeline/engine"
	"sales_pipeline_backend/internal/pipeline/repository"
	"sales_pipeline_backend/internal/pipeline/transport"
	"sales_pipeline_backend/platform/apperr"
	"sales_pipeline_backend/platform/lock"
	"sales_pipeline_backend/platform/logger"
	"sales_pipeline_backend/platform/telemetry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// AssignmentLockKey serializes automatic assignment across API and worker
// processes so two concurrent requests do not both pick the same least
// loaded agent.
const AssignmentLockKey = "pipeline:assignment"

// maxCommitAttempts bounds MoveStage: one attempt plus one retry after a
// stale commit.
const maxCommitAttempts = 2

const (
	msgLeadNotFound    = "lead not found"
	msgTaskNotFound    = "task not found"
	msgAgentNotFound   = "agent not found"
	msgUnknownStage    = "unknown stage"
	msgAlreadyAssigned = "already assigned"
	msgNoEligibleAgent = "no eligible agent"
	msgAgentIneligible = "agent must be active staff"
)

// Service handles pipeline operations.
type Service struct {
	repo    repository.Repository
	engine  *engine.Engine
	bus     events.Bus
	locker  lock.Locker
	log     *logger.Logger
	metrics *metrics
	tracer  trace.Tracer
	now     func() time.Time
}

// New creates the pipeline service.
func New(repo repository.Repository, eng *engine.Engine, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:    repo,
		engine:  eng,
		bus:     bus,
		locker:  lock.Noop{},
		log:     log,
		metrics: newMetrics(telemetry.Meter("sales_pipeline_backend/pipeline")),
		tracer:  telemetry.Tracer("sales_pipeline_backend/pipeline"),
		now:     time.Now,
	}
}

// SetAssignmentLocker enables cross-process serialization of automatic assignment.
func (s *Service) SetAssignmentLocker(locker lock.Locker) {
	if locker == nil {
		locker = lock.Noop{}
	}
	s.locker = locker
}

// Stages lists every configured stage in ordinal order.
func (s *Service) Stages() transport.StageListResponse {
	stages := s.engine.Graph.Stages()
	items := make([]transport.StageResponse, 0, len(stages))
	for _, st := range stages {
		items = append(items, toStageResponse(st, s.engine.Registry.IDsFor(st.Name)))
	}
	return transport.StageListResponse{Stages: items}
}

// NextStages lists the stages reachable from stage in one move, with the
// prerequisites each one requires.
func (s *Service) NextStages(stage string) (transport.StageListResponse, error) {
	next, err := s.engine.Graph.EdgesFrom(stage)
	if err != nil {
		return transport.StageListResponse{}, apperr.Wrap(apperr.KindNotFound, msgUnknownStage, err)
	}
	items := make([]transport.StageResponse, 0, len(next))
	for _, st := range next {
		edge, _ := s.engine.Graph.Edge(stage, st.Name)
		items = append(items, toStageResponse(st, edge.Prerequisites))
	}
	return transport.StageListResponse{Stages: items}, nil
}

// ValidateTransition evaluates a move of the lead from its current stage to
// toStage without committing it.
func (s *Service) ValidateTransition(ctx context.Context, leadID uuid.UUID, toStage string, actorID uuid.UUID) (transport.ValidationResponse, error) {
	lead, err := s.getLead(ctx, leadID)
	if err != nil {
		return transport.ValidationResponse{}, err
	}
	result, err := s.validate(ctx, lead, toStage, actorID)
	if err != nil {
		return transport.ValidationResponse{}, err
	}
	return toValidationResponse(lead.ID, lead.Stage, toStage, result), nil
}

// MoveStage validates and commits a stage move. A rejected move is reported
// with Committed=false and no error. If the lead's stage changes between
// validation and commit, the move is revalidated once against the new stage;
// a second lost race is a conflict.
func (s *Service) MoveStage(ctx context.Context, leadID uuid.UUID, toStage string, actorID uuid.UUID) (transport.TransitionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.MoveStage", trace.WithAttributes(
		attribute.String("lead_id", leadID.String()),
		attribute.String("to_stage", toStage),
	))
	defer span.End()

	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		lead, err := s.getLead(ctx, leadID)
		if err != nil {
			return transport.TransitionResponse{}, err
		}

		result, err := s.validate(ctx, lead, toStage, actorID)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return transport.TransitionResponse{}, err
		}
		validation := toValidationResponse(lead.ID, lead.Stage, toStage, result)

		if !result.IsValid {
			s.metrics.transition(ctx, s.metrics.rejections, toStage)
			s.log.WithContext(ctx).StageTransition(leadID.String(), lead.Stage, toStage, actorID.String(), false, result.Errors)
			return transport.TransitionResponse{Committed: false, Validation: validation}, nil
		}

		updated, err := s.repo.CommitStageChange(ctx, leadID, lead.Stage, toStage, actorID)
		if errors.Is(err, domain.ErrStaleTransition) {
			s.metrics.transition(ctx, s.metrics.staleRetry, toStage)
			if attempt < maxCommitAttempts {
				continue
			}
			return transport.TransitionResponse{}, apperr.Wrap(apperr.KindConflict, "lead stage changed concurrently, please retry", err)
		}
		if errors.Is(err, domain.ErrLeadNotFound) {
			return transport.TransitionResponse{}, apperr.Wrap(apperr.KindNotFound, msgLeadNotFound, err)
		}
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return transport.TransitionResponse{}, err
		}

		s.metrics.transition(ctx, s.metrics.transitions, toStage)
		s.log.WithContext(ctx).StageTransition(leadID.String(), lead.Stage, toStage, actorID.String(), true, nil)
		s.publish(ctx, events.LeadStageChanged{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    leadID,
			FromStage: lead.Stage,
			ToStage:   toStage,
			ActorID:   actorID,
		})

		resp := toLeadResponse(updated)
		return transport.TransitionResponse{Committed: true, Validation: validation, Lead: &resp}, nil
	}

	return transport.TransitionResponse{}, apperr.Conflict("lead stage changed concurrently, please retry")
}

// StageHistory lists the committed moves of a lead, oldest first.
func (s *Service) StageHistory(ctx context.Context, leadID uuid.UUID) (transport.StageHistoryResponse, error) {
	if _, err := s.getLead(ctx, leadID); err != nil {
		return transport.StageHistoryResponse{}, err
	}
	changes, err := s.repo.ListStageHistory(ctx, leadID)
	if err != nil {
		return transport.StageHistoryResponse{}, err
	}
	items := make([]transport.StageChangeResponse, 0, len(changes))
	for _, c := range changes {
		items = append(items, transport.StageChangeResponse{
			FromStage: c.FromStage,
			ToStage:   c.ToStage,
			ActorID:   c.ActorID,
			ChangedAt: c.ChangedAt,
		})
	}
	return transport.StageHistoryResponse{Items: items}, nil
}

// WorkloadRanking scores the eligible agents, least loaded first. limit <= 0
// returns everyone. Agents whose counts could not be read are listed under
// failures instead of failing the request.
func (s *Service) WorkloadRanking(ctx context.Context, filter domain.EligibilityFilter, limit int) (transport.WorkloadResponse, error) {
	agents, err := s.repo.ListAgents(ctx, filter)
	if err != nil {
		return transport.WorkloadResponse{}, err
	}

	ranking := s.engine.Selector.Rank(ctx, agents)
	s.reportScoreFailures(ctx, ranking.Failures)

	scores := ranking.Scores
	if limit > 0 && len(scores) > limit {
		scores = scores[:limit]
	}

	resp := transport.WorkloadResponse{Items: make([]transport.WorkloadScoreResponse, 0, len(scores))}
	for _, sc := range scores {
		resp.Items = append(resp.Items, toWorkloadScoreResponse(sc))
	}
	for _, f := range ranking.Failures {
		resp.Failures = append(resp.Failures, transport.ScoreFailureResponse{AgentID: f.AgentID, Error: f.Err.Error()})
	}
	return resp, nil
}

// AssignLead gives an unowned lead to the least loaded eligible agent.
func (s *Service) AssignLead(ctx context.Context, leadID uuid.UUID, filter domain.EligibilityFilter) (transport.AssignmentResponse, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.AssignLead", trace.WithAttributes(attribute.String("lead_id", leadID.String())))
	defer span.End()

	release, err := s.locker.Acquire(ctx, AssignmentLockKey)
	if err != nil {
		return transport.AssignmentResponse{}, err
	}
	defer s.release(ctx, release)

	lead, err := s.getLead(ctx, leadID)
	if err != nil {
		return transport.AssignmentResponse{}, err
	}
	if lead.AssignedAgentID != nil {
		return transport.AssignmentResponse{}, apperr.Wrap(apperr.KindConflict, msgAlreadyAssigned, domain.ErrAlreadyAssigned)
	}

	best, err := s.selectAssignee(ctx, filter)
	if err != nil {
		return transport.AssignmentResponse{}, err
	}

	if _, err := s.repo.AssignLead(ctx, leadID, best.Agent.ID, false); err != nil {
		return transport.AssignmentResponse{}, mapAssignError(err, msgLeadNotFound)
	}

	score := best.Score
	s.metrics.assigned(ctx, "lead", false)
	s.log.WithContext(ctx).AgentAssigned("lead", leadID.String(), best.Agent.ID.String(), score)
	s.publish(ctx, events.LeadAssigned{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		AgentID:   best.Agent.ID,
		Score:     &score,
	})

	return transport.AssignmentResponse{SubjectID: leadID, AgentID: best.Agent.ID, Score: &score}, nil
}

// AssignTask gives an unowned task to the least loaded eligible agent.
func (s *Service) AssignTask(ctx context.Context, taskID uuid.UUID, filter domain.EligibilityFilter) (transport.AssignmentResponse, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.AssignTask", trace.WithAttributes(attribute.String("task_id", taskID.String())))
	defer span.End()

	release, err := s.locker.Acquire(ctx, AssignmentLockKey)
	if err != nil {
		return transport.AssignmentResponse{}, err
	}
	defer s.release(ctx, release)

	task, err := s.repo.GetTask(ctx, taskID)
	if errors.Is(err, domain.ErrTaskNotFound) {
		return transport.AssignmentResponse{}, apperr.Wrap(apperr.KindNotFound, msgTaskNotFound, err)
	}
	if err != nil {
		return transport.AssignmentResponse{}, err
	}
	if task.OwnerID != nil {
		return transport.AssignmentResponse{}, apperr.Wrap(apperr.KindConflict, msgAlreadyAssigned, domain.ErrAlreadyAssigned)
	}

	best, err := s.selectAssignee(ctx, filter)
	if err != nil {
		return transport.AssignmentResponse{}, err
	}

	if _, err := s.repo.AssignTask(ctx, taskID, best.Agent.ID, false); err != nil {
		return transport.AssignmentResponse{}, mapAssignError(err, msgTaskNotFound)
	}

	s.metrics.assigned(ctx, "task", false)
	s.log.WithContext(ctx).AgentAssigned("task", taskID.String(), best.Agent.ID.String(), best.Score)
	s.publish(ctx, events.TaskAssigned{
		BaseEvent: events.NewBaseEvent(),
		TaskID:    taskID,
		AgentID:   best.Agent.ID,
		Score:     best.Score,
	})

	score := best.Score
	return transport.AssignmentResponse{SubjectID: taskID, AgentID: best.Agent.ID, Score: &score}, nil
}

// ReassignLead sets the owner of a lead explicitly, replacing any current
// owner. The new owner must be active staff, the same pool automatic
// assignment draws from by default, so the lead stays visible in scoring.
func (s *Service) ReassignLead(ctx context.Context, leadID, agentID, actorID uuid.UUID) (transport.AssignmentResponse, error) {
	agent, err := s.repo.GetAgent(ctx, agentID)
	if err != nil {
		if errors.Is(err, domain.ErrAgentNotFound) {
			return transport.AssignmentResponse{}, apperr.Wrap(apperr.KindNotFound, msgAgentNotFound, err)
		}
		return transport.AssignmentResponse{}, err
	}
	if !(domain.EligibilityFilter{}).Matches(agent) {
		return transport.AssignmentResponse{}, apperr.Wrap(apperr.KindUnprocessable, msgAgentIneligible, domain.ErrAgentIneligible)
	}

	before, err := s.getLead(ctx, leadID)
	if err != nil {
		return transport.AssignmentResponse{}, err
	}

	if _, err := s.repo.AssignLead(ctx, leadID, agentID, true); err != nil {
		return transport.AssignmentResponse{}, mapAssignError(err, msgLeadNotFound)
	}

	s.metrics.assigned(ctx, "lead", true)
	s.log.WithContext(ctx).Info("lead reassigned", "leadId", leadID, "agentId", agentID, "actorId", actorID)
	s.publish(ctx, events.LeadAssigned{
		BaseEvent:       events.NewBaseEvent(),
		LeadID:          leadID,
		AgentID:         agentID,
		PreviousAgentID: before.AssignedAgentID,
		Manual:          true,
	})

	return transport.AssignmentResponse{SubjectID: leadID, AgentID: agentID}, nil
}

// RequestLeadAssignment queues the lead for assignment by the background
// worker, which draws from the agents filter admits.
func (s *Service) RequestLeadAssignment(ctx context.Context, leadID uuid.UUID, filter domain.EligibilityFilter) (transport.AssignmentResponse, error) {
	if _, err := s.getLead(ctx, leadID); err != nil {
		return transport.AssignmentResponse{}, err
	}
	if s.bus == nil {
		return transport.AssignmentResponse{}, apperr.Internal("assignment queue unavailable")
	}
	if err := s.bus.PublishSync(ctx, events.LeadAssignmentRequested{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		Criteria:  events.CriteriaFromFilter(filter),
	}); err != nil {
		return transport.AssignmentResponse{}, err
	}
	return transport.AssignmentResponse{SubjectID: leadID, Queued: true}, nil
}

// RequestTaskAssignment queues the task like RequestLeadAssignment.
func (s *Service) RequestTaskAssignment(ctx context.Context, taskID uuid.UUID, filter domain.EligibilityFilter) (transport.AssignmentResponse, error) {
	if _, err := s.repo.GetTask(ctx, taskID); err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return transport.AssignmentResponse{}, apperr.Wrap(apperr.KindNotFound, msgTaskNotFound, err)
		}
		return transport.AssignmentResponse{}, err
	}
	if s.bus == nil {
		return transport.AssignmentResponse{}, apperr.Internal("assignment queue unavailable")
	}
	if err := s.bus.PublishSync(ctx, events.TaskAssignmentRequested{
		BaseEvent: events.NewBaseEvent(),
		TaskID:    taskID,
		Criteria:  events.CriteriaFromFilter(filter),
	}); err != nil {
		return transport.AssignmentResponse{}, err
	}
	return transport.AssignmentResponse{SubjectID: taskID, Queued: true}, nil
}

// MarkOverdueTasks flips pending tasks past their due date to overdue.
func (s *Service) MarkOverdueTasks(ctx context.Context) (int, error) {
	n, err := s.repo.MarkOverdueTasks(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("tasks marked overdue", "count", n)
		s.publish(ctx, events.TasksMarkedOverdue{BaseEvent: events.NewBaseEvent(), Count: n})
	}
	return n, nil
}

func (s *Service) getLead(ctx context.Context, leadID uuid.UUID) (domain.Lead, error) {
	lead, err := s.repo.GetLead(ctx, leadID)
	if errors.Is(err, domain.ErrLeadNotFound) {
		return domain.Lead{}, apperr.Wrap(apperr.KindNotFound, msgLeadNotFound, err)
	}
	return lead, err
}

// validate separates the two kinds of unknown stage: a target the caller made
// up is not found, while a lead sitting in a stage the graph does not know is
// a broken deployment.
func (s *Service) validate(ctx context.Context, lead domain.Lead, toStage string, actorID uuid.UUID) (domain.ValidationResult, error) {
	if !s.engine.Graph.HasStage(toStage) {
		return domain.ValidationResult{}, apperr.Wrap(apperr.KindNotFound, msgUnknownStage, domain.NewConfigurationError(toStage, "unknown stage"))
	}

	result, err := s.engine.Validator.ValidateStageTransition(ctx, lead, lead.Stage, toStage, actorID)
	if err != nil {
		if domain.IsConfigurationError(err) {
			s.log.Error("pipeline configuration error", "leadId", lead.ID, "stage", lead.Stage, "error", err)
			return domain.ValidationResult{}, apperr.Wrap(apperr.KindInternal, "pipeline misconfigured", err)
		}
		return domain.ValidationResult{}, err
	}
	for _, f := range result.Failures {
		s.log.RepositoryReadFailure("prerequisite:"+f.CheckID, lead.ID.String(), f.Err)
	}
	s.metrics.validated(ctx, toStage, result.IsValid)
	return result, nil
}

func (s *Service) selectAssignee(ctx context.Context, filter domain.EligibilityFilter) (domain.WorkloadScore, error) {
	agents, err := s.repo.ListAgents(ctx, filter)
	if err != nil {
		return domain.WorkloadScore{}, err
	}

	best, ranking, err := s.engine.Selector.Select(ctx, agents)
	s.reportScoreFailures(ctx, ranking.Failures)
	switch {
	case errors.Is(err, domain.ErrNoEligibleAgent):
		return domain.WorkloadScore{}, apperr.Wrap(apperr.KindConflict, msgNoEligibleAgent, err)
	case errors.Is(err, domain.ErrRepositoryRead):
		return domain.WorkloadScore{}, apperr.Wrap(apperr.KindInternal, "workload could not be computed", err)
	case err != nil:
		return domain.WorkloadScore{}, err
	}
	return best, nil
}

func (s *Service) reportScoreFailures(ctx context.Context, failures []domain.ScoreFailure) {
	for _, f := range failures {
		s.metrics.scoreErrors.Add(ctx, 1)
		s.log.RepositoryReadFailure("workload_score", f.AgentID.String(), f.Err)
	}
}

func (s *Service) release(ctx context.Context, release lock.ReleaseFunc) {
	if err := release(context.WithoutCancel(ctx)); err != nil {
		s.log.Warn("failed to release assignment lock", "error", err)
	}
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, event)
}

func mapAssignError(err error, notFoundMsg string) error {
	switch {
	case errors.Is(err, domain.ErrAlreadyAssigned):
		return apperr.Wrap(apperr.KindConflict, msgAlreadyAssigned, err)
	case errors.Is(err, domain.ErrLeadNotFound), errors.Is(err, domain.ErrTaskNotFound):
		return apperr.Wrap(apperr.KindNotFound, notFoundMsg, err)
	case errors.Is(err, domain.ErrAgentNotFound):
		return apperr.Wrap(apperr.KindNotFound, msgAgentNotFound, err)
	}
	return err
}

func toStageResponse(st domain.Stage, prerequisites []string) transport.StageResponse {
	return transport.StageResponse{
		Name:          st.Name,
		Ordinal:       st.Ordinal,
		Category:      string(st.Category),
		Prerequisites: prerequisites,
	}
}

func toValidationResponse(leadID uuid.UUID, fromStage, toStage string, result domain.ValidationResult) transport.ValidationResponse {
	resp := transport.ValidationResponse{
		LeadID:    leadID,
		FromStage: fromStage,
		ToStage:   toStage,
		IsValid:   result.IsValid,
		Errors:    result.Errors,
	}
	if resp.Errors == nil {
		resp.Errors = []string{}
	}
	for _, f := range result.Failures {
		resp.Failures = append(resp.Failures, transport.CheckFailureResponse{CheckID: f.CheckID, Error: f.Err.Error()})
	}
	return resp
}

func toLeadResponse(l domain.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:              l.ID,
		Stage:           l.Stage,
		Phone:           l.Phone,
		Email:           l.Email,
		AssignedAgentID: l.AssignedAgentID,
		UpdatedAt:       l.UpdatedAt,
	}
}

func toWorkloadScoreResponse(sc domain.WorkloadScore) transport.WorkloadScoreResponse {
	return transport.WorkloadScoreResponse{
		AgentID:        sc.Agent.ID,
		AgentName:      sc.Agent.Name,
		ActiveLeads:    sc.ActiveLeads,
		PendingTasks:   sc.PendingTasks,
		OverdueTasks:   sc.OverdueTasks,
		Score:          sc.Score,
		LastAssignedAt: sc.Agent.LastAssignedAt,
	}
}
