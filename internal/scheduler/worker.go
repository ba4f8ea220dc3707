package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sales_pipeline_backend/internal/pipeline/domain"
	"sales_pipeline_backend/internal/pipeline/transport"
	"sales_pipeline_backend/platform/config"
	"sales_pipeline_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Assigner is the part of the pipeline service the worker drives.
type Assigner interface {
	AssignLead(ctx context.Context, leadID uuid.UUID, filter domain.EligibilityFilter) (transport.AssignmentResponse, error)
	AssignTask(ctx context.Context, taskID uuid.UUID, filter domain.EligibilityFilter) (transport.AssignmentResponse, error)
	MarkOverdueTasks(ctx context.Context) (int, error)
}

type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	assigner  Assigner
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, assigner Assigner, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := queueName(cfg)

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	w := &Worker{
		server:   server,
		assigner: assigner,
		log:      log,
	}
	w.mux = w.newMux()

	if cronSpec := cfg.GetOverdueSweepCron(); cronSpec != "" {
		w.scheduler = asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: time.UTC})
		if _, err := w.scheduler.Register(cronSpec, NewMarkOverdueTasksTask(), asynq.Queue(queue)); err != nil {
			return nil, fmt.Errorf("register overdue sweep %q: %w", cronSpec, err)
		}
	}

	return w, nil
}

func (w *Worker) newMux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskAssignLead, w.handleAssignLead)
	mux.HandleFunc(TaskAssignTask, w.handleAssignTask)
	mux.HandleFunc(TaskMarkOverdueTasks, w.handleMarkOverdueTasks)
	return mux
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			w.log.Error("periodic scheduler failed to start", "error", err)
		} else {
			defer w.scheduler.Shutdown()
		}
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleAssignLead(ctx context.Context, task *asynq.Task) error {
	leadID, filter, err := ParseAssignLeadPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	resp, err := w.assigner.AssignLead(ctx, leadID, filter)
	if err != nil {
		return w.assignmentError("lead", leadID, err)
	}
	w.log.Info("lead assigned by worker", "leadId", leadID, "agentId", resp.AgentID)
	return nil
}

func (w *Worker) handleAssignTask(ctx context.Context, task *asynq.Task) error {
	taskID, filter, err := ParseAssignTaskPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	resp, err := w.assigner.AssignTask(ctx, taskID, filter)
	if err != nil {
		return w.assignmentError("task", taskID, err)
	}
	w.log.Info("task assigned by worker", "taskId", taskID, "agentId", resp.AgentID)
	return nil
}

func (w *Worker) handleMarkOverdueTasks(ctx context.Context, _ *asynq.Task) error {
	n, err := w.assigner.MarkOverdueTasks(ctx)
	if err != nil {
		return err
	}
	w.log.Info("overdue sweep complete", "marked", n)
	return nil
}

// assignmentError decides whether a failed assignment is worth retrying.
// Missing subjects and subjects that already have an owner are final; an
// empty agent pool or a read failure may clear up later.
func (w *Worker) assignmentError(kind string, subjectID uuid.UUID, err error) error {
	switch {
	case errors.Is(err, domain.ErrAlreadyAssigned):
		w.log.Info("assignment skipped, already owned", "kind", kind, "subjectId", subjectID)
		return nil
	case errors.Is(err, domain.ErrLeadNotFound), errors.Is(err, domain.ErrTaskNotFound):
		w.log.Warn("assignment subject disappeared", "kind", kind, "subjectId", subjectID)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	w.log.Warn("assignment failed, will retry", "kind", kind, "subjectId", subjectID, "error", err)
	return err
}
