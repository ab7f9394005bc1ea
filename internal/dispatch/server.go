package dispatch

import (
	"context"
	"fmt"
	"time"

	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/metrics"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"
)

// HandlerFunc processes one task and reports a Result. Returning an error
// asks the dispatcher for a retry decision; non-retryable errors (typed via
// apperr) fail terminally without burning the remaining attempts.
type HandlerFunc func(ctx context.Context, task *asynq.Task) (Result, error)

// Server runs one asynq server per dispatch domain, so each domain has its
// own worker pool and a burst in one domain cannot starve another.
type Server struct {
	servers map[Domain]*asynq.Server
	muxes   map[Domain]*asynq.ServeMux
	client  *Client
	log     *logger.Logger
}

// NewServer builds the per-domain servers from configuration.
func NewServer(cfg config.DispatchConfig, client *Client, log *logger.Logger) (*Server, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	s := &Server{
		servers: make(map[Domain]*asynq.Server, len(Domains())),
		muxes:   make(map[Domain]*asynq.ServeMux, len(Domains())),
		client:  client,
		log:     log,
	}

	for _, domain := range Domains() {
		concurrency := cfg.GetDomainConcurrency(string(domain))
		if concurrency < 1 {
			concurrency = 1
		}

		s.servers[domain] = asynq.NewServer(opt, asynq.Config{
			Concurrency:    concurrency,
			Queues:         DomainQueues(domain),
			StrictPriority: true,
			RetryDelayFunc: RetryDelay(cfg.GetRetryBaseDelay()),
			ErrorHandler:   asynq.ErrorHandlerFunc(s.onError),
			Logger:         &asynqLogger{log: log},
		})
		s.muxes[domain] = asynq.NewServeMux()
	}

	return s, nil
}

// Handle registers a handler for a task type on its owning domain server.
func (s *Server) Handle(taskType string, h HandlerFunc) {
	domain := TaskDomain(taskType)
	mux, ok := s.muxes[domain]
	if !ok {
		panic(fmt.Sprintf("dispatch: no server for domain %q (task %s)", domain, taskType))
	}
	mux.HandleFunc(taskType, s.adapt(domain, taskType, h))
}

// Run starts every domain server and blocks until ctx is cancelled or a
// server fails.
func (s *Server) Run(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)

	for domain, server := range s.servers {
		if err := server.Start(s.muxes[domain]); err != nil {
			return fmt.Errorf("start %s server: %w", domain, err)
		}
	}

	group.Go(func() error {
		<-groupCtx.Done()
		for _, server := range s.servers {
			server.Shutdown()
		}
		return groupCtx.Err()
	})

	err := group.Wait()
	if err == context.Canceled {
		return nil
	}
	return err
}

// adapt converts a HandlerFunc into an asynq handler, translating the
// Result variants into dispatcher actions.
func (s *Server) adapt(domain Domain, taskType string, h HandlerFunc) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		attempt, _ := asynq.GetRetryCount(ctx)
		start := time.Now()

		result, err := h(ctx, task)

		metrics.JobDuration.WithLabelValues(string(domain), taskType).Observe(time.Since(start).Seconds())

		if err != nil {
			metrics.JobsProcessed.WithLabelValues(string(domain), taskType, string(StatusFailed)).Inc()
			s.log.JobFailed(string(domain), taskType, attempt, err)
			if !apperr.IsRetryable(err) {
				return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
			}
			return err
		}

		switch result.Status {
		case StatusRescheduled:
			queue, _ := asynq.GetQueueName(ctx)
			if queue == "" {
				queue = QueueName(domain, DefaultPriority(domain))
			}
			maxRetry, ok := asynq.GetMaxRetry(ctx)
			if !ok {
				maxRetry = defaultMaxAttempts - 1
			}
			if rerr := s.client.reschedule(ctx, task, queue, result.Delay, maxRetry); rerr != nil {
				return fmt.Errorf("reschedule %s: %w", taskType, rerr)
			}
			metrics.JobsProcessed.WithLabelValues(string(domain), taskType, string(StatusRescheduled)).Inc()
			s.log.JobEvent(queue, taskType, "rescheduled", attempt)
			return nil
		case StatusSkipped:
			metrics.JobsProcessed.WithLabelValues(string(domain), taskType, string(StatusSkipped)).Inc()
			s.log.Info("job_skipped", "domain", string(domain), "task_type", taskType, "reason", result.Reason)
			return nil
		default:
			metrics.JobsProcessed.WithLabelValues(string(domain), taskType, "completed").Inc()
			return nil
		}
	}
}

// onError observes retry-bound failures surfaced by asynq itself
// (handler errors are already logged in adapt; this also catches payload
// parse failures and context cancellations).
func (s *Server) onError(ctx context.Context, task *asynq.Task, err error) {
	queue, _ := asynq.GetQueueName(ctx)
	attempt, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	if attempt >= maxRetry {
		s.log.Error("job_exhausted",
			"queue", queue,
			"task_type", task.Type(),
			"attempts", attempt+1,
			"error", err.Error(),
		)
	}
}

// asynqLogger bridges asynq's internal logging onto the structured logger.
type asynqLogger struct {
	log *logger.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) { l.log.Debug(fmt.Sprint(args...)) }
func (l *asynqLogger) Info(args ...interface{})  { l.log.Info(fmt.Sprint(args...)) }
func (l *asynqLogger) Warn(args ...interface{})  { l.log.Warn(fmt.Sprint(args...)) }
func (l *asynqLogger) Error(args ...interface{}) { l.log.Error(fmt.Sprint(args...)) }
func (l *asynqLogger) Fatal(args ...interface{}) { l.log.Error(fmt.Sprint(args...)) }
