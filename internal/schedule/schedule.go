// Package schedule registers the recurring jobs. The scheduler only
// enqueues; the dispatch workers do the actual work.
package schedule

import (
	"fmt"

	"leadflow_backend/internal/dispatch"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Scheduler wraps the cron scheduler with the recurring entry set.
type Scheduler struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

// New builds the scheduler with every recurring entry registered.
func New(dispatchCfg config.DispatchConfig, scheduleCfg config.ScheduleConfig, log *logger.Logger) (*Scheduler, error) {
	opt, err := asynq.ParseRedisURI(dispatchCfg.GetRedisURL())
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Location: scheduleCfg.GetScheduleLocation(),
	})

	rollupTask, err := dispatch.NewDailyRollupTask("")
	if err != nil {
		return nil, err
	}

	entries := []struct {
		cron  string
		task  *asynq.Task
		queue string
	}{
		{scheduleCfg.GetSequenceSweepCron(), dispatch.NewSequenceSweepTask(), queueFor(dispatch.TypeSequenceSweep)},
		{scheduleCfg.GetSLAScanCron(), dispatch.NewSLAScanTask(), queueFor(dispatch.TypeSLAScan)},
		{scheduleCfg.GetWebhookReplayCron(), dispatch.NewWebhookReplayTask(), queueFor(dispatch.TypeWebhookReplay)},
		{scheduleCfg.GetDailyRollupCron(), rollupTask, queueFor(dispatch.TypeDailyRollup)},
	}

	for _, entry := range entries {
		id, err := scheduler.Register(entry.cron, entry.task, asynq.Queue(entry.queue))
		if err != nil {
			return nil, fmt.Errorf("register %s (%s): %w", entry.task.Type(), entry.cron, err)
		}
		log.Info("schedule_registered",
			"entry_id", id,
			"task_type", entry.task.Type(),
			"cron", entry.cron,
		)
	}

	return &Scheduler{scheduler: scheduler, log: log}, nil
}

// queueFor routes a recurring task to its domain queue at the domain's
// default priority.
func queueFor(taskType string) string {
	domain := dispatch.TaskDomain(taskType)
	return dispatch.QueueName(domain, dispatch.DefaultPriority(domain))
}

// Run starts the scheduler and blocks until shutdown.
func (s *Scheduler) Run() error {
	return s.scheduler.Run()
}

// Shutdown stops the scheduler.
func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
