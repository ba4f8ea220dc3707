package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"sales_pipeline_backend/internal/events"
	"sales_pipeline_backend/internal/pipeline/domain"
	"sales_pipeline_backend/platform/config"
	"sales_pipeline_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// assignmentUniqueTTL collapses repeated requests for the same subject into
// one queued task.
const assignmentUniqueTTL = 5 * time.Minute

const assignmentMaxRetry = 5

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Client struct {
	client enqueuer
	closer func() error
	queue  string
	log    *logger.Logger
}

func NewClient(cfg config.SchedulerConfig, log *logger.Logger) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	client := asynq.NewClient(opt)
	return &Client{
		client: client,
		closer: client.Close,
		queue:  queueName(cfg),
		log:    log,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}
	return c.closer()
}

// EnqueueLeadAssignment queues an automatic assignment of the lead.
func (c *Client) EnqueueLeadAssignment(ctx context.Context, leadID uuid.UUID, filter domain.EligibilityFilter) error {
	task, err := NewAssignLeadTask(leadID, filter)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task)
}

// EnqueueTaskAssignment queues an automatic assignment of the task.
func (c *Client) EnqueueTaskAssignment(ctx context.Context, taskID uuid.UUID, filter domain.EligibilityFilter) error {
	task, err := NewAssignTaskTask(taskID, filter)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task)
}

// RegisterHandlers turns assignment request events into queued tasks.
func (c *Client) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadAssignmentRequested{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadAssignmentRequested)
		if !ok {
			return nil
		}
		return c.EnqueueLeadAssignment(ctx, e.LeadID, e.Criteria.Filter())
	}))
	bus.Subscribe(events.TaskAssignmentRequested{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.TaskAssignmentRequested)
		if !ok {
			return nil
		}
		return c.EnqueueTaskAssignment(ctx, e.TaskID, e.Criteria.Filter())
	}))
}

func (c *Client) enqueue(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("scheduler client not configured")
	}

	info, err := c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(assignmentMaxRetry),
		asynq.Unique(assignmentUniqueTTL),
	)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	if c.log != nil && info != nil {
		c.log.Info("task enqueued", "type", task.Type(), "taskId", info.ID, "queue", info.Queue)
	}
	return nil
}

func queueName(cfg config.SchedulerConfig) string {
	if queue := cfg.GetAsynqQueueName(); queue != "" {
		return queue
	}
	return "default"
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
