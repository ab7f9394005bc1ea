package dispatch

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"leadflow_backend/platform/config"
	"leadflow_backend/platform/metrics"

	"github.com/hibiken/asynq"
)

// defaultMaxAttempts bounds execution when an enqueue request does not
// specify its own limit.
const defaultMaxAttempts = 5

// Options control how a job is queued.
type Options struct {
	// Priority within the domain, 1 (most urgent) to 5. Zero means the
	// domain default.
	Priority int
	// Delay postpones the first execution.
	Delay time.Duration
	// MaxAttempts bounds total executions (first run + retries). Zero
	// means the default.
	MaxAttempts int
}

// JobHandle identifies an accepted job.
type JobHandle struct {
	ID    string
	Queue string
}

// Client enqueues jobs into the per-domain priority queues.
type Client struct {
	client    *asynq.Client
	retention time.Duration
}

// NewClient creates a dispatcher client from configuration.
func NewClient(cfg config.DispatchConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	retention := cfg.GetCompletedRetention()
	if retention <= 0 {
		retention = 24 * time.Hour
	}

	return &Client{
		client:    asynq.NewClient(opt),
		retention: retention,
	}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Enqueue places a task on its domain queue. The task type determines the
// domain; priority selects the in-domain queue. Jobs are never executed
// before their delay elapses, and completed jobs are retained so queue
// statistics stay observable.
func (c *Client) Enqueue(ctx context.Context, task *asynq.Task, opts Options) (JobHandle, error) {
	domain := TaskDomain(task.Type())

	priority := opts.Priority
	if priority == 0 {
		priority = DefaultPriority(domain)
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	queue := QueueName(domain, priority)
	asynqOpts := []asynq.Option{
		asynq.Queue(queue),
		asynq.MaxRetry(maxAttempts - 1),
		asynq.Retention(c.retention),
	}
	if opts.Delay > 0 {
		asynqOpts = append(asynqOpts, asynq.ProcessIn(opts.Delay))
	}

	info, err := c.client.EnqueueContext(ctx, task, asynqOpts...)
	if err != nil {
		return JobHandle{}, fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}

	metrics.JobsEnqueued.WithLabelValues(string(domain), task.Type(), strconv.Itoa(priority)).Inc()
	return JobHandle{ID: info.ID, Queue: info.Queue}, nil
}

// reschedule places a copy of an in-flight task back on its original queue
// after the requested delay. The original retry cap is carried over so the
// copy does not fall back to asynq's default.
func (c *Client) reschedule(ctx context.Context, task *asynq.Task, queue string, delay time.Duration, maxRetry int) error {
	_, err := c.client.EnqueueContext(ctx,
		asynq.NewTask(task.Type(), task.Payload()),
		asynq.Queue(queue),
		asynq.MaxRetry(maxRetry),
		asynq.ProcessIn(delay),
		asynq.Retention(c.retention),
	)
	return err
}
