package webhookin

import (
	"context"
	"fmt"

	"leadflow_backend/internal/leads"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/metrics"

	"github.com/google/uuid"
)

// replayBatchSize bounds how many events one replay pass works through.
const replayBatchSize = 200

// LeadIntake is the slice of the lead service webhooks feed into.
type LeadIntake interface {
	Intake(ctx context.Context, req leads.IntakeRequest) (leads.IntakeResult, error)
	ApplyExternalStatus(ctx context.Context, leadID uuid.UUID, status string) (leads.Lead, error)
	RecordInteraction(ctx context.Context, leadID uuid.UUID, req leads.InteractionRequest) (leads.Interaction, error)
}

// LeadFinder attributes engagement events to leads. Implemented by
// leads.Repository.
type LeadFinder interface {
	FindLatestByEmail(ctx context.Context, email string) (leads.Lead, bool, error)
}

// EngagementRecorder applies engagement events to sequences. Implemented
// by sequence.Service.
type EngagementRecorder interface {
	RecordEngagement(ctx context.Context, leadID uuid.UUID, event string) error
}

// Service implements webhook ingestion and replay over the event log.
type Service struct {
	repo       *Repository
	intake     LeadIntake
	finder     LeadFinder
	engagement EngagementRecorder
	cfg        config.WebhookConfig
	log        *logger.Logger
}

// NewService creates the webhookin service.
func NewService(repo *Repository, intake LeadIntake, finder LeadFinder, engagement EngagementRecorder, cfg config.WebhookConfig, log *logger.Logger) *Service {
	return &Service{
		repo:       repo,
		intake:     intake,
		finder:     finder,
		engagement: engagement,
		cfg:        cfg,
		log:        log,
	}
}

// IngestOutcome reports what happened to an inbound event.
type IngestOutcome struct {
	EventID   uuid.UUID `json:"eventId"`
	Processed bool      `json:"processed"`
	Deferred  bool      `json:"deferred"`
}

// Ingest logs the event and processes it inline. The write-ahead insert
// happens first so nothing is lost; a transient processing failure leaves
// the event for replay (deferred), a permanently bad payload is abandoned
// and the typed error returned to the caller.
func (s *Service) Ingest(ctx context.Context, source, eventType string, payload []byte) (IngestOutcome, error) {
	event, err := s.repo.Insert(ctx, source, eventType, payload)
	if err != nil {
		return IngestOutcome{}, fmt.Errorf("log webhook event: %w", err)
	}
	metrics.WebhookEvents.WithLabelValues(source, "received").Inc()

	leadID, interactionID, processErr := s.process(ctx, event)
	if processErr == nil {
		if err := s.repo.MarkProcessed(ctx, event.ID, leadID, interactionID); err != nil {
			return IngestOutcome{}, err
		}
		metrics.WebhookEvents.WithLabelValues(source, "processed").Inc()
		return IngestOutcome{EventID: event.ID, Processed: true}, nil
	}

	if !apperr.IsRetryable(processErr) {
		// Replay cannot fix a bad payload; burn the budget now and
		// surface the typed error to the sender.
		_ = s.abandon(ctx, event, processErr)
		return IngestOutcome{EventID: event.ID}, processErr
	}

	if err := s.repo.MarkFailed(ctx, event.ID, processErr); err != nil {
		return IngestOutcome{}, err
	}
	metrics.WebhookEvents.WithLabelValues(source, "deferred").Inc()
	s.log.Warn("webhook_deferred",
		"event_id", event.ID.String(),
		"source", source,
		"error", processErr.Error(),
	)
	return IngestOutcome{EventID: event.ID, Deferred: true}, nil
}

// ReplayReport summarizes one replay pass.
type ReplayReport struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Abandoned int `json:"abandoned"`
}

// Replay re-processes unprocessed events in arrival order. Events whose
// retry budget runs out are reported and left in the log, never silently
// dropped.
func (s *Service) Replay(ctx context.Context) (ReplayReport, error) {
	maxRetries := s.cfg.GetWebhookMaxRetries()

	events, err := s.repo.ListUnprocessed(ctx, maxRetries, replayBatchSize)
	if err != nil {
		return ReplayReport{}, fmt.Errorf("list unprocessed events: %w", err)
	}

	report := ReplayReport{Attempted: len(events)}
	for _, event := range events {
		leadID, interactionID, processErr := s.process(ctx, event)
		if processErr == nil {
			if err := s.repo.MarkProcessed(ctx, event.ID, leadID, interactionID); err != nil {
				return report, err
			}
			metrics.WebhookEvents.WithLabelValues(event.Source, "processed").Inc()
			report.Succeeded++
			continue
		}

		if !apperr.IsRetryable(processErr) || event.RetryCount+1 >= maxRetries {
			if err := s.abandon(ctx, event, processErr); err != nil {
				return report, err
			}
			report.Abandoned++
			continue
		}

		if err := s.repo.MarkFailed(ctx, event.ID, processErr); err != nil {
			return report, err
		}
	}

	if abandoned, err := s.repo.CountAbandoned(ctx, maxRetries); err == nil && abandoned > 0 {
		s.log.Warn("webhook_events_abandoned", "count", abandoned)
	}
	return report, nil
}

// abandon exhausts an event's retry budget so replay stops picking it up.
// The payload and last error stay queryable.
func (s *Service) abandon(ctx context.Context, event Event, processErr error) error {
	if err := s.repo.Abandon(ctx, event.ID, s.cfg.GetWebhookMaxRetries(), processErr); err != nil {
		return err
	}
	metrics.WebhookEvents.WithLabelValues(event.Source, "abandoned").Inc()
	s.log.Error("webhook_abandoned",
		"event_id", event.ID.String(),
		"source", event.Source,
		"error", processErr.Error(),
	)
	return nil
}

// process routes one event to its source extractor and applies it.
func (s *Service) process(ctx context.Context, event Event) (*uuid.UUID, *uuid.UUID, error) {
	switch event.Source {
	case SourceForm:
		return s.processForm(ctx, event)
	case SourceEngagement:
		return s.processEngagement(ctx, event)
	case SourceCRM:
		return s.processCRMUpdate(ctx, event)
	default:
		return nil, nil, apperr.BadRequest(fmt.Sprintf("unknown webhook source %q", event.Source))
	}
}

func (s *Service) processForm(ctx context.Context, event Event) (*uuid.UUID, *uuid.UUID, error) {
	req, err := ExtractForm(event.Payload)
	if err != nil {
		return nil, nil, err
	}

	result, err := s.intake.Intake(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	// A duplicate within the window links to the original lead; that is a
	// successful ingestion, not an error.
	return &result.Lead.ID, nil, nil
}

func (s *Service) processEngagement(ctx context.Context, event Event) (*uuid.UUID, *uuid.UUID, error) {
	engagement, err := ExtractEngagement(event.Payload)
	if err != nil {
		return nil, nil, err
	}

	lead, found, err := s.finder.FindLatestByEmail(ctx, engagement.Email)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		s.log.Info("engagement_without_lead", "email_event", engagement.Event)
		return nil, nil, nil
	}

	// A reply lands on the lead's timeline as an inbound interaction,
	// which stamps customer_responded_at and stops the drip sequence.
	var interactionID *uuid.UUID
	if engagement.Event == "replied" {
		interaction, err := s.intake.RecordInteraction(ctx, lead.ID, leads.InteractionRequest{
			Kind:    leads.InteractionEmailReply,
			Channel: "email",
			Summary: "replied to a follow-up email",
		})
		if err != nil {
			return nil, nil, err
		}
		interactionID = &interaction.ID
	}

	if err := s.engagement.RecordEngagement(ctx, lead.ID, engagement.Event); err != nil {
		return nil, nil, err
	}
	return &lead.ID, interactionID, nil
}

func (s *Service) processCRMUpdate(ctx context.Context, event Event) (*uuid.UUID, *uuid.UUID, error) {
	leadID, status, err := ExtractCRMUpdate(event.Payload)
	if err != nil {
		return nil, nil, err
	}

	if _, err := s.intake.ApplyExternalStatus(ctx, leadID, status); err != nil {
		return nil, nil, err
	}
	return &leadID, nil, nil
}
