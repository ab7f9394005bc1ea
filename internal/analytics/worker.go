package analytics

import (
	"context"
	"fmt"
	"time"

	"leadflow_backend/internal/dispatch"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Worker owns the analytics job handlers.
type Worker struct {
	repo         *Repository
	location     *time.Location
	slaThreshold time.Duration
	log          *logger.Logger
	now          func() time.Time
}

// NewWorker creates the analytics worker.
func NewWorker(repo *Repository, scheduleCfg config.ScheduleConfig, slaCfg config.SLAConfig, log *logger.Logger) *Worker {
	location := scheduleCfg.GetScheduleLocation()
	if location == nil {
		location = time.UTC
	}
	return &Worker{
		repo:         repo,
		location:     location,
		slaThreshold: slaCfg.GetSLAResponseThreshold(),
		log:          log,
		now:          time.Now,
	}
}

// Register mounts the analytics handlers on the dispatch server.
func (w *Worker) Register(server *dispatch.Server) {
	server.Handle(dispatch.TypeAnalyticsEvent, w.HandleEvent)
	server.Handle(dispatch.TypeDailyRollup, w.HandleDailyRollup)
}

// HandleEvent ingests one pipeline event.
func (w *Worker) HandleEvent(ctx context.Context, task *asynq.Task) (dispatch.Result, error) {
	payload, err := dispatch.ParseAnalyticsEventPayload(task)
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if payload.EventType == "" {
		return dispatch.Skip("event without type"), nil
	}

	event := Event{EventType: payload.EventType, Payload: payload.Fields, OccurredAt: w.now()}
	if payload.LeadID != "" {
		leadID, err := uuid.Parse(payload.LeadID)
		if err != nil {
			return dispatch.Result{}, fmt.Errorf("bad lead id: %w", asynq.SkipRetry)
		}
		event.LeadID = &leadID
	}

	if err := w.repo.InsertEvent(ctx, event); err != nil {
		return dispatch.Result{}, fmt.Errorf("insert analytics event: %w", err)
	}
	return dispatch.Sent(), nil
}

// HandleDailyRollup aggregates one calendar day. An empty day in the
// payload rolls up yesterday in the reporting timezone; re-running a day
// replaces its numbers.
func (w *Worker) HandleDailyRollup(ctx context.Context, task *asynq.Task) (dispatch.Result, error) {
	payload, err := dispatch.ParseDailyRollupPayload(task)
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	day, err := w.resolveDay(payload.Day)
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	rollup, err := w.repo.ComputeDay(ctx, day, day.Add(24*time.Hour), w.slaThreshold)
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("compute rollup: %w", err)
	}
	if err := w.repo.UpsertRollup(ctx, rollup); err != nil {
		return dispatch.Result{}, fmt.Errorf("store rollup: %w", err)
	}

	w.log.Info("daily_rollup_computed",
		"day", day.Format("2006-01-02"),
		"leads_created", rollup.LeadsCreated,
		"responses_sent", rollup.ResponsesSent,
		"escalations", rollup.Escalations,
	)
	return dispatch.Sent(), nil
}

func (w *Worker) resolveDay(raw string) (time.Time, error) {
	if raw == "" {
		yesterday := w.now().In(w.location).AddDate(0, 0, -1)
		return time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 0, 0, 0, 0, w.location), nil
	}

	day, err := time.ParseInLocation("2006-01-02", raw, w.location)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad rollup day %q", raw)
	}
	return day, nil
}
