package response

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadflow_backend/internal/dispatch"
	"leadflow_backend/internal/leads"
	"leadflow_backend/internal/notify"
	"leadflow_backend/internal/sequence"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Send window bounds in local hours. First-touch messages outside the
// window wait for it to open instead of texting people at 3am.
const (
	sendWindowOpenHour  = 8
	sendWindowCloseHour = 21
)

// LeadStore is the slice of the lead repository this worker needs.
type LeadStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (leads.Lead, error)
	MarkResponded(ctx context.Context, id uuid.UUID, at time.Time) error
	AddInteraction(ctx context.Context, i leads.Interaction) (leads.Interaction, error)
}

// SequenceStarter begins the follow-up sequence after the first touch.
// Implemented by sequence.Service.
type SequenceStarter interface {
	CreateForLead(ctx context.Context, leadID uuid.UUID, score int, serviceType string) (sequence.Sequence, error)
}

// Enqueuer places background jobs. Implemented by dispatch.Client.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts dispatch.Options) (dispatch.JobHandle, error)
}

// Service sends the instant response for a freshly created lead.
type Service struct {
	leadRepo  LeadStore
	sequences SequenceStarter
	email     notify.EmailSender
	sms       *notify.SMSClient
	enqueuer  Enqueuer
	location  *time.Location
	log       *logger.Logger
	now       func() time.Time
}

// NewService creates the response service. The SMS client may be nil.
func NewService(leadRepo LeadStore, sequences SequenceStarter, email notify.EmailSender, sms *notify.SMSClient, enqueuer Enqueuer, location *time.Location, log *logger.Logger) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{
		leadRepo:  leadRepo,
		sequences: sequences,
		email:     email,
		sms:       sms,
		enqueuer:  enqueuer,
		location:  location,
		log:       log,
		now:       time.Now,
	}
}

// Respond sends the first-touch message for a lead. Re-delivery of an
// already-answered lead is an idempotent skip; outside the send window the
// job reschedules itself to the window's opening.
func (s *Service) Respond(ctx context.Context, leadID uuid.UUID) (dispatch.Result, error) {
	lead, err := s.leadRepo.GetByID(ctx, leadID)
	if errors.Is(err, leads.ErrLeadNotFound) {
		return dispatch.Skip("lead no longer exists"), nil
	}
	if err != nil {
		return dispatch.Result{}, err
	}

	if lead.DuplicateOf != nil {
		return dispatch.Skip("duplicate inquiry, original lead owns the response"), nil
	}
	if lead.RespondedAt != nil || lead.Status != leads.StatusNew {
		return dispatch.Skip("lead already contacted"), nil
	}

	now := s.now().In(s.location)
	if delay := untilSendWindow(now); delay > 0 {
		return dispatch.Reschedule(delay), nil
	}

	channel, err := s.sendFirstTouch(ctx, lead)
	if err != nil {
		return dispatch.Result{}, err
	}
	if channel == "" {
		return dispatch.Skip("lead has no reachable contact channel"), nil
	}

	if _, err := s.leadRepo.AddInteraction(ctx, leads.Interaction{
		LeadID:     lead.ID,
		Kind:       leads.InteractionOutbound,
		Channel:    channel,
		Summary:    "instant response sent",
		OccurredAt: s.now(),
	}); err != nil {
		return dispatch.Result{}, err
	}
	if err := s.leadRepo.MarkResponded(ctx, lead.ID, s.now()); err != nil {
		return dispatch.Result{}, err
	}

	if _, err := s.sequences.CreateForLead(ctx, lead.ID, lead.Score, lead.ServiceType); err != nil {
		s.log.Error("sequence_create_failed", "lead_id", lead.ID.String(), "error", err.Error())
	}

	s.enqueueResponseEvent(ctx, lead, channel)

	s.log.Info("instant_response_sent",
		"lead_id", lead.ID.String(),
		"channel", channel,
		"priority", lead.PriorityLevel,
	)
	return dispatch.Sent(), nil
}

// sendFirstTouch picks the channel: email when available, SMS fallback.
// Returns the channel used, empty when the lead is unreachable.
func (s *Service) sendFirstTouch(ctx context.Context, lead leads.Lead) (string, error) {
	if lead.Email != "" {
		subject, body := FirstTouchMessage(lead)
		if err := s.email.SendEmail(ctx, lead.Email, subject, body); err != nil {
			return "", fmt.Errorf("first touch email: %w", err)
		}
		return "email", nil
	}

	if lead.Phone != "" && s.sms != nil {
		if err := s.sms.SendSMS(ctx, lead.Phone, FirstTouchSMS(lead)); err != nil {
			return "", fmt.Errorf("first touch sms: %w", err)
		}
		return "sms", nil
	}

	return "", nil
}

func (s *Service) enqueueResponseEvent(ctx context.Context, lead leads.Lead, channel string) {
	event, err := dispatch.NewAnalyticsEventTask(dispatch.AnalyticsEventPayload{
		EventType: "response_sent",
		LeadID:    lead.ID.String(),
		Fields:    map[string]any{"channel": channel, "latency_seconds": s.now().Sub(lead.CreatedAt).Seconds()},
	})
	if err == nil {
		_, err = s.enqueuer.Enqueue(ctx, event, dispatch.Options{})
	}
	if err != nil {
		s.log.Error("enqueue_analytics_event_failed", "lead_id", lead.ID.String(), "error", err.Error())
	}
}

// untilSendWindow returns how long to wait for the send window to open,
// zero when it is already open.
func untilSendWindow(now time.Time) time.Duration {
	hour := now.Hour()
	if hour >= sendWindowOpenHour && hour < sendWindowCloseHour {
		return 0
	}

	opening := time.Date(now.Year(), now.Month(), now.Day(), sendWindowOpenHour, 0, 0, 0, now.Location())
	if hour >= sendWindowCloseHour {
		opening = opening.Add(24 * time.Hour)
	}
	return opening.Sub(now)
}
