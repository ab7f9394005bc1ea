package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"leadflow_backend/internal/dispatch"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"
)

// Delivery windows. An alert not delivered within its window is stale and
// gets dropped rather than waking someone up late.
const (
	highPriorityWindow = 4 * time.Hour
	escalationWindow   = time.Hour
)

// Enqueuer places background jobs. Implemented by dispatch.Client.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts dispatch.Options) (dispatch.JobHandle, error)
}

// Transports bundles the channel senders. Chat and SMS may be nil when not
// configured; email always has at least the no-op sender.
type Transports struct {
	Email EmailSender
	Chat  *ChatClient
	SMS   *SMSClient
}

// Service implements notification creation and multi-channel delivery.
type Service struct {
	repo       *Repository
	transports Transports
	enqueuer   Enqueuer
	cfg        config.IntakeConfig
	log        *logger.Logger
	now        func() time.Time
}

// NewService creates the notify service.
func NewService(repo *Repository, transports Transports, enqueuer Enqueuer, cfg config.IntakeConfig, log *logger.Logger) *Service {
	return &Service{
		repo:       repo,
		transports: transports,
		enqueuer:   enqueuer,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
	}
}

// HighPriorityLead raises an operator alert for a freshly scored hot lead.
func (s *Service) HighPriorityLead(ctx context.Context, leadID uuid.UUID, displayName string, score, priority int) error {
	expires := s.now().Add(highPriorityWindow)
	return s.createAndEnqueue(ctx, Notification{
		Type:     TypeHighPriorityLead,
		Priority: 2,
		Channels: s.channels(false),
		Recipients: Recipients{
			Emails: s.cfg.GetEscalationRecipients(),
			Phones: s.cfg.GetEscalationPhones(),
		},
		Subject:   fmt.Sprintf("Hot lead: %s (score %d)", displayName, score),
		Body:      fmt.Sprintf("New priority-%d lead %q just came in with score %d. Jump on it before the clock runs.", priority, displayName, score),
		LeadID:    &leadID,
		ExpiresAt: &expires,
	})
}

// EscalationAlert raises an overdue-response alert. Critical escalations
// add the SMS channel so they reach someone off-desk.
func (s *Service) EscalationAlert(ctx context.Context, leadID uuid.UUID, displayName, severity string, age time.Duration) error {
	expires := s.now().Add(escalationWindow)
	return s.createAndEnqueue(ctx, Notification{
		Type:     TypeSLAEscalation,
		Priority: 1,
		Channels: s.channels(severity == "critical"),
		Recipients: Recipients{
			Emails: s.cfg.GetEscalationRecipients(),
			Phones: s.cfg.GetEscalationPhones(),
		},
		Subject:   fmt.Sprintf("%s: lead %s unanswered for %s", severityLabel(severity), displayName, age.Round(time.Second)),
		Body:      fmt.Sprintf("Lead %q has been waiting %s without a first response. Severity: %s.", displayName, age.Round(time.Second), severity),
		LeadID:    &leadID,
		ExpiresAt: &expires,
	})
}

func severityLabel(severity string) string {
	if severity == "critical" {
		return "CRITICAL SLA BREACH"
	}
	return "SLA warning"
}

// channels lists the deliverable channels in primary-first order.
func (s *Service) channels(includeSMS bool) []string {
	channels := []string{ChannelEmail}
	if s.transports.Chat != nil {
		channels = append(channels, ChannelChat)
	}
	if includeSMS && s.transports.SMS != nil {
		channels = append(channels, ChannelSMS)
	}
	return channels
}

// createAndEnqueue stores the record and hands delivery to the
// notification domain. Storage and delivery are separate so a delivery
// retry never duplicates the record.
func (s *Service) createAndEnqueue(ctx context.Context, n Notification) error {
	created, err := s.repo.Create(ctx, n)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	task, err := dispatch.NewNotificationDispatchTask(created.ID)
	if err != nil {
		return err
	}
	if _, err := s.enqueuer.Enqueue(ctx, task, dispatch.Options{Priority: created.Priority}); err != nil {
		return fmt.Errorf("enqueue notification dispatch: %w", err)
	}
	return nil
}

// Deliver fans a stored notification out to its channels concurrently.
// Channels that already succeeded on an earlier attempt are not resent.
// Delivery succeeds when the primary channel went through; a failed
// primary returns an error so the dispatcher retries.
func (s *Service) Deliver(ctx context.Context, id uuid.UUID) (dispatch.Result, error) {
	n, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotificationNotFound) {
		return dispatch.Skip("notification no longer exists"), nil
	}
	if err != nil {
		return dispatch.Result{}, err
	}

	if n.Sent {
		return dispatch.Skip("already delivered"), nil
	}
	if n.Expired(s.now()) {
		return dispatch.Skip("delivery window expired"), nil
	}
	if len(n.Channels) == 0 {
		return dispatch.Skip("no channels configured"), nil
	}

	results := make(map[string]ChannelResult, len(n.Channels))
	for channel, prior := range n.ChannelResults {
		results[channel] = prior
	}

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	for _, channel := range n.Channels {
		if prior, ok := results[channel]; ok && prior.OK {
			continue
		}

		channel := channel
		group.Go(func() error {
			sendErr := s.deliverChannel(groupCtx, n, channel)
			outcome := ChannelResult{OK: sendErr == nil, SentAt: s.now()}
			if sendErr != nil {
				outcome.Error = sendErr.Error()
				s.log.Warn("notification_channel_failed",
					"notification_id", n.ID.String(),
					"channel", channel,
					"error", sendErr.Error(),
				)
			}
			mu.Lock()
			results[channel] = outcome
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	primaryOK := results[n.Primary()].OK
	if err := s.repo.SaveDelivery(ctx, n.ID, results, primaryOK, s.now()); err != nil {
		return dispatch.Result{}, err
	}

	if !primaryOK {
		return dispatch.Result{}, fmt.Errorf("primary channel %s failed: %s", n.Primary(), results[n.Primary()].Error)
	}

	s.log.Info("notification_delivered",
		"notification_id", n.ID.String(),
		"type", n.Type,
		"primary", n.Primary(),
		"channels", len(n.Channels),
	)
	return dispatch.Sent(), nil
}

func (s *Service) deliverChannel(ctx context.Context, n Notification, channel string) error {
	switch channel {
	case ChannelEmail:
		if len(n.Recipients.Emails) == 0 {
			return fmt.Errorf("no email recipients")
		}
		for _, to := range n.Recipients.Emails {
			if err := s.transports.Email.SendEmail(ctx, to, n.Subject, n.Body); err != nil {
				return err
			}
		}
		return nil
	case ChannelChat:
		return s.transports.Chat.SendChat(ctx, fmt.Sprintf("*%s*\n%s", n.Subject, n.Body))
	case ChannelSMS:
		if len(n.Recipients.Phones) == 0 {
			return fmt.Errorf("no sms recipients")
		}
		for _, to := range n.Recipients.Phones {
			if err := s.transports.SMS.SendSMS(ctx, to, n.Subject); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown channel %q", channel)
	}
}

// MarkRead flags a notification as seen.
func (s *Service) MarkRead(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, id)
}

// ListRecent returns the latest notifications.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]Notification, error) {
	return s.repo.ListRecent(ctx, limit)
}
