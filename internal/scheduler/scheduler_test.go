package scheduler

import (
	"context"
	"errors"
	"testing"

	"sales_pipeline_backend/internal/events"
	"sales_pipeline_backend/internal/pipeline/definition"
	"sales_pipeline_backend/internal/pipeline/domain"
	"sales_pipeline_backend/internal/pipeline/engine"
	"sales_pipeline_backend/internal/pipeline/repository"
	"sales_pipeline_backend/internal/pipeline/service"
	"sales_pipeline_backend/internal/pipeline/transport"
	"sales_pipeline_backend/platform/apperr"
	"sales_pipeline_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAssigner struct {
	leadErr  error
	taskErr  error
	leads    []uuid.UUID
	tasks    []uuid.UUID
	filters  []domain.EligibilityFilter
	overdue  int
	sweeps   int
	sweepErr error
}

func (f *fakeAssigner) AssignLead(_ context.Context, leadID uuid.UUID, filter domain.EligibilityFilter) (transport.AssignmentResponse, error) {
	f.leads = append(f.leads, leadID)
	f.filters = append(f.filters, filter)
	return transport.AssignmentResponse{SubjectID: leadID, AgentID: uuid.New()}, f.leadErr
}

func (f *fakeAssigner) AssignTask(_ context.Context, taskID uuid.UUID, filter domain.EligibilityFilter) (transport.AssignmentResponse, error) {
	f.tasks = append(f.tasks, taskID)
	f.filters = append(f.filters, filter)
	return transport.AssignmentResponse{SubjectID: taskID, AgentID: uuid.New()}, f.taskErr
}

func (f *fakeAssigner) MarkOverdueTasks(context.Context) (int, error) {
	f.sweeps++
	return f.overdue, f.sweepErr
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: uuid.NewString(), Queue: "default", Type: task.Type()}, nil
}

func newTestWorker(a Assigner) *Worker {
	w := &Worker{assigner: a, log: logger.NewNop()}
	w.mux = w.newMux()
	return w
}

func TestAssignLeadTaskRoundTrip(t *testing.T) {
	leadID := uuid.New()
	filter := domain.EligibilityFilter{IncludeInactive: true, AgentIDs: []uuid.UUID{uuid.New()}}
	task, err := NewAssignLeadTask(leadID, filter)
	require.NoError(t, err)
	assert.Equal(t, TaskAssignLead, task.Type())

	parsedID, parsedFilter, err := ParseAssignLeadPayload(task)
	require.NoError(t, err)
	assert.Equal(t, leadID, parsedID)
	assert.Equal(t, filter, parsedFilter)
}

func TestParseAssignTaskPayloadWithoutCriteria(t *testing.T) {
	taskID := uuid.New()
	parsedID, filter, err := ParseAssignTaskPayload(asynq.NewTask(TaskAssignTask, []byte(`{"taskId":"`+taskID.String()+`"}`)))
	require.NoError(t, err)
	assert.Equal(t, taskID, parsedID)
	assert.Equal(t, domain.EligibilityFilter{}, filter)
}

func TestWorkerAssignsLead(t *testing.T) {
	a := &fakeAssigner{}
	w := newTestWorker(a)
	leadID := uuid.New()
	filter := domain.EligibilityFilter{IncludeNonStaff: true}
	task, err := NewAssignLeadTask(leadID, filter)
	require.NoError(t, err)

	require.NoError(t, w.mux.ProcessTask(context.Background(), task))
	assert.Equal(t, []uuid.UUID{leadID}, a.leads)
	assert.Equal(t, []domain.EligibilityFilter{filter}, a.filters)
}

func TestWorkerAssignmentErrors(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		wantErr   bool
		skipRetry bool
	}{
		{"already owned", apperr.Wrap(apperr.KindConflict, "already assigned", domain.ErrAlreadyAssigned), false, false},
		{"missing lead", apperr.Wrap(apperr.KindNotFound, "lead not found", domain.ErrLeadNotFound), true, true},
		{"no agents", apperr.Wrap(apperr.KindConflict, "no eligible agent", domain.ErrNoEligibleAgent), true, false},
		{"read failure", domain.ErrRepositoryRead, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := newTestWorker(&fakeAssigner{leadErr: tc.err})
			task, err := NewAssignLeadTask(uuid.New(), domain.EligibilityFilter{})
			require.NoError(t, err)

			err = w.mux.ProcessTask(context.Background(), task)
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.skipRetry, errors.Is(err, asynq.SkipRetry))
		})
	}
}

func TestWorkerRejectsMalformedPayload(t *testing.T) {
	w := newTestWorker(&fakeAssigner{})

	err := w.mux.ProcessTask(context.Background(), asynq.NewTask(TaskAssignTask, []byte(`{"taskId":"nope"}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestWorkerAssignsTask(t *testing.T) {
	a := &fakeAssigner{}
	w := newTestWorker(a)
	taskID := uuid.New()
	task, err := NewAssignTaskTask(taskID, domain.EligibilityFilter{})
	require.NoError(t, err)

	require.NoError(t, w.mux.ProcessTask(context.Background(), task))
	assert.Equal(t, []uuid.UUID{taskID}, a.tasks)
}

func TestWorkerOverdueSweep(t *testing.T) {
	a := &fakeAssigner{overdue: 3}
	w := newTestWorker(a)

	require.NoError(t, w.mux.ProcessTask(context.Background(), NewMarkOverdueTasksTask()))
	assert.Equal(t, 1, a.sweeps)

	a.sweepErr = errors.New("db down")
	assert.Error(t, w.mux.ProcessTask(context.Background(), NewMarkOverdueTasksTask()))
}

func TestClientBridgesAssignmentRequests(t *testing.T) {
	enq := &fakeEnqueuer{}
	client := &Client{client: enq, queue: "default", log: logger.NewNop()}
	bus := events.NewInMemoryBus(nil)
	client.RegisterHandlers(bus)

	leadID := uuid.New()
	taskID := uuid.New()
	criteria := events.AssignmentCriteria{IncludeInactive: true, AgentIDs: []uuid.UUID{uuid.New()}}
	require.NoError(t, bus.PublishSync(context.Background(), events.LeadAssignmentRequested{BaseEvent: events.NewBaseEvent(), LeadID: leadID, Criteria: criteria}))
	require.NoError(t, bus.PublishSync(context.Background(), events.TaskAssignmentRequested{BaseEvent: events.NewBaseEvent(), TaskID: taskID}))

	require.Len(t, enq.tasks, 2)
	gotLead, leadFilter, err := ParseAssignLeadPayload(enq.tasks[0])
	require.NoError(t, err)
	assert.Equal(t, leadID, gotLead)
	assert.Equal(t, criteria.Filter(), leadFilter)
	gotTask, taskFilter, err := ParseAssignTaskPayload(enq.tasks[1])
	require.NoError(t, err)
	assert.Equal(t, taskID, gotTask)
	assert.Equal(t, domain.EligibilityFilter{}, taskFilter)
}

func TestClientEnqueueErrors(t *testing.T) {
	client := &Client{client: &fakeEnqueuer{err: asynq.ErrDuplicateTask}, queue: "default"}
	assert.NoError(t, client.EnqueueLeadAssignment(context.Background(), uuid.New(), domain.EligibilityFilter{}))

	client = &Client{client: &fakeEnqueuer{err: errors.New("redis down")}, queue: "default"}
	assert.Error(t, client.EnqueueLeadAssignment(context.Background(), uuid.New(), domain.EligibilityFilter{}))

	var nilClient *Client
	assert.Error(t, nilClient.EnqueueTaskAssignment(context.Background(), uuid.New(), domain.EligibilityFilter{}))
	assert.NoError(t, nilClient.Close())
}

func TestQueuedAssignmentKeepsRequestedAgentPool(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	def, err := definition.Default()
	require.NoError(t, err)
	eng, err := engine.Build(def, engine.Deps{Messages: repo, Counts: repo})
	require.NoError(t, err)

	enq := &fakeEnqueuer{}
	bus := events.NewInMemoryBus(nil)
	(&Client{client: enq, queue: "default", log: logger.NewNop()}).RegisterHandlers(bus)
	svc := service.New(repo, eng, bus, logger.NewNop())

	idle := domain.Agent{ID: uuid.New(), Name: "idle", IsActive: true, IsStaff: true}
	busy := domain.Agent{ID: uuid.New(), Name: "busy", IsActive: true, IsStaff: true}
	repo.PutAgent(idle)
	repo.PutAgent(busy)
	repo.PutLead(domain.Lead{ID: uuid.New(), Stage: domain.StageNegotiation, AssignedAgentID: &busy.ID})
	lead := domain.Lead{ID: uuid.New(), Stage: domain.StageLead}
	repo.PutLead(lead)

	resp, err := svc.RequestLeadAssignment(ctx, lead.ID, domain.EligibilityFilter{AgentIDs: []uuid.UUID{busy.ID}})
	require.NoError(t, err)
	assert.True(t, resp.Queued)
	require.Len(t, enq.tasks, 1)

	w := newTestWorker(svc)
	require.NoError(t, w.mux.ProcessTask(ctx, enq.tasks[0]))
	bus.Wait()

	stored, err := repo.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AssignedAgentID)
	assert.Equal(t, busy.ID, *stored.AssignedAgentID)
}

type schedulerConfig struct{ url string }

func (c schedulerConfig) GetRedisURL() string         { return c.url }
func (c schedulerConfig) GetRedisTLSInsecure() bool   { return false }
func (c schedulerConfig) GetAsynqQueueName() string   { return "" }
func (c schedulerConfig) GetAsynqConcurrency() int    { return 0 }
func (c schedulerConfig) GetOverdueSweepCron() string { return "" }

func TestNewClientRequiresRedis(t *testing.T) {
	_, err := NewClient(schedulerConfig{}, nil)
	assert.Error(t, err)
	_, err = NewWorker(schedulerConfig{}, &fakeAssigner{}, nil)
	assert.Error(t, err)
}

func TestRedisClientOptParsesURL(t *testing.T) {
	opt, err := redisClientOpt("rediss://:pw@cache:6380/2", true)
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opt.Addr)
	assert.Equal(t, "pw", opt.Password)
	assert.Equal(t, 2, opt.DB)
	require.NotNil(t, opt.TLSConfig)
	assert.True(t, opt.TLSConfig.InsecureSkipVerify)
}
