package sla

import (
	"context"
	"fmt"
	"time"

	"leadflow_backend/internal/dispatch"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/metrics"

	"github.com/hibiken/asynq"
)

// Enqueuer places background jobs. Implemented by dispatch.Client.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts dispatch.Options) (dispatch.JobHandle, error)
}

// Service implements the SLA scan: window metrics plus overdue escalation.
type Service struct {
	repo     *Repository
	enqueuer Enqueuer
	cfg      config.SLAConfig
	log      *logger.Logger
	now      func() time.Time
}

// NewService creates the sla service.
func NewService(repo *Repository, enqueuer Enqueuer, cfg config.SLAConfig, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		enqueuer: enqueuer,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// ScanReport summarizes one scan pass.
type ScanReport struct {
	Metrics   Metrics `json:"metrics"`
	Escalated int     `json:"escalated"`
}

// Scan measures the trailing window and escalates overdue leads. Each
// threshold crossing escalates at most once; the level raise and the
// alert enqueue are ordered so a crash between them loses the alert, not
// doubles it, and the next scan of a still-unanswered lead at the next
// level re-alerts anyway.
func (s *Service) Scan(ctx context.Context) (ScanReport, error) {
	now := s.now()

	windowMetrics, err := s.repo.ComputeWindow(ctx, now.Add(-s.cfg.GetSLAWindow()), now, s.cfg.GetSLAResponseThreshold())
	if err != nil {
		return ScanReport{}, fmt.Errorf("compute sla window: %w", err)
	}
	stored, err := s.repo.InsertMetrics(ctx, windowMetrics)
	if err != nil {
		return ScanReport{}, fmt.Errorf("store sla metrics: %w", err)
	}

	escalated := 0
	// Critical first so a lead past both thresholds raises straight to
	// critical instead of firing urgent on the way.
	for _, pass := range []struct {
		level     int
		threshold time.Duration
	}{
		{LevelCritical, s.cfg.GetSLACriticalThreshold()},
		{LevelUrgent, s.cfg.GetSLAResponseThreshold()},
	} {
		count, err := s.escalatePass(ctx, now, pass.level, pass.threshold)
		if err != nil {
			return ScanReport{}, err
		}
		escalated += count
	}

	return ScanReport{Metrics: stored, Escalated: escalated}, nil
}

func (s *Service) escalatePass(ctx context.Context, now time.Time, level int, threshold time.Duration) (int, error) {
	overdue, err := s.repo.FindOverdue(ctx, now.Add(-threshold), level)
	if err != nil {
		return 0, fmt.Errorf("find overdue leads: %w", err)
	}

	severity := SeverityName(level)
	escalated := 0
	for _, lead := range overdue {
		raised, err := s.repo.Escalate(ctx, lead.ID, level)
		if err != nil {
			return escalated, err
		}
		if !raised {
			continue
		}

		age := now.Sub(lead.CreatedAt)
		s.log.EscalationRaised(lead.ID.String(), severity, age.Seconds())
		metrics.Escalations.WithLabelValues(severity).Inc()

		task, err := dispatch.NewEscalationTask(lead.ID, severity)
		if err != nil {
			return escalated, err
		}
		if _, err := s.enqueuer.Enqueue(ctx, task, dispatch.Options{Priority: dispatch.PriorityUrgent}); err != nil {
			return escalated, fmt.Errorf("enqueue escalation for lead %s: %w", lead.ID, err)
		}

		event, err := dispatch.NewAnalyticsEventTask(dispatch.AnalyticsEventPayload{
			EventType: "escalation_raised",
			LeadID:    lead.ID.String(),
			Fields:    map[string]any{"severity": severity, "age_seconds": age.Seconds()},
		})
		if err == nil {
			if _, err := s.enqueuer.Enqueue(ctx, event, dispatch.Options{}); err != nil {
				s.log.Error("enqueue_analytics_event_failed", "lead_id", lead.ID.String(), "error", err.Error())
			}
		}

		escalated++
	}
	return escalated, nil
}

// Latest returns the most recent window measurement.
func (s *Service) Latest(ctx context.Context) (Metrics, error) {
	return s.repo.Latest(ctx)
}
