package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadflow_backend/internal/dispatch"
	"leadflow_backend/internal/leads"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// claimLease is how far ClaimDue pushes next_run_at forward; an enqueued
// step normally lands well inside this window.
const claimLease = 10 * time.Minute

// sweepBatchSize bounds how many due sequences one sweep claims.
const sweepBatchSize = 100

// Store is the slice of the sequence repository the service needs.
// Implemented by *Repository.
type Store interface {
	Create(ctx context.Context, s Sequence) (Sequence, error)
	GetByID(ctx context.Context, id uuid.UUID) (Sequence, error)
	GetActiveByLead(ctx context.Context, leadID uuid.UUID) (Sequence, bool, error)
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]Sequence, error)
	Save(ctx context.Context, s Sequence) error
	IncrementEngagement(ctx context.Context, leadID uuid.UUID, column string) error
}

// LeadSource loads leads for step eligibility checks. Implemented by
// leads.Repository.
type LeadSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (leads.Lead, error)
}

// Enqueuer places background jobs. Implemented by dispatch.Client.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts dispatch.Options) (dispatch.JobHandle, error)
}

// Sender delivers step emails. Implemented by the notify mail sender.
type Sender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Service implements sequence creation, pausing and step execution.
type Service struct {
	repo     Store
	leadRepo LeadSource
	enqueuer Enqueuer
	sender   Sender
	log      *logger.Logger
	now      func() time.Time
}

// NewService creates the sequence service.
func NewService(repo Store, leadRepo LeadSource, enqueuer Enqueuer, sender Sender, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		leadRepo: leadRepo,
		enqueuer: enqueuer,
		sender:   sender,
		log:      log,
		now:      time.Now,
	}
}

// CreateForLead starts a follow-up sequence for a lead, choosing the type
// from score and service. A lead with an active sequence keeps it; the
// existing one is returned untouched.
func (s *Service) CreateForLead(ctx context.Context, leadID uuid.UUID, score int, serviceType string) (Sequence, error) {
	if existing, ok, err := s.repo.GetActiveByLead(ctx, leadID); err != nil {
		return Sequence{}, err
	} else if ok {
		return existing, nil
	}

	seq, err := New(leadID, ChooseType(score, serviceType), s.now())
	if err != nil {
		return Sequence{}, err
	}

	created, err := s.repo.Create(ctx, seq)
	if errors.Is(err, ErrActiveSequenceExists) {
		existing, _, lookupErr := s.repo.GetActiveByLead(ctx, leadID)
		if lookupErr != nil {
			return Sequence{}, lookupErr
		}
		return existing, nil
	}
	if err != nil {
		return Sequence{}, err
	}

	s.log.Info("sequence_created",
		"sequence_id", created.ID.String(),
		"lead_id", leadID.String(),
		"type", created.Type,
		"total_steps", created.TotalSteps,
	)
	return created, nil
}

// PauseForLead pauses the lead's active sequence, if any. Leads without an
// active sequence are a no-op.
func (s *Service) PauseForLead(ctx context.Context, leadID uuid.UUID, reason string) error {
	seq, ok, err := s.repo.GetActiveByLead(ctx, leadID)
	if err != nil || !ok {
		return err
	}

	if err := seq.Pause(reason); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, seq); err != nil {
		return err
	}

	s.log.Info("sequence_paused",
		"sequence_id", seq.ID.String(),
		"lead_id", leadID.String(),
		"reason", reason,
	)
	return nil
}

// Resume reactivates a paused sequence. Fails if the lead picked up a new
// active sequence in the meantime.
func (s *Service) Resume(ctx context.Context, id uuid.UUID) (Sequence, error) {
	seq, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Sequence{}, err
	}

	if _, active, err := s.repo.GetActiveByLead(ctx, seq.LeadID); err != nil {
		return Sequence{}, err
	} else if active {
		return Sequence{}, ErrActiveSequenceExists
	}

	if err := seq.Resume(s.now()); err != nil {
		return Sequence{}, err
	}
	if err := s.repo.Save(ctx, seq); err != nil {
		return Sequence{}, err
	}
	return seq, nil
}

// RecordEngagement applies an engagement webhook to the lead's latest
// sequence. Unsubscribes and bounces pause the active sequence.
func (s *Service) RecordEngagement(ctx context.Context, leadID uuid.UUID, event string) error {
	switch event {
	case "opened", "clicked":
		return s.repo.IncrementEngagement(ctx, leadID, "opened_count")
	case "replied":
		if err := s.repo.IncrementEngagement(ctx, leadID, "responded_count"); err != nil {
			return err
		}
		return s.PauseForLead(ctx, leadID, "lead replied")
	case "bounced":
		return s.PauseForLead(ctx, leadID, "email bounced")
	case "unsubscribed":
		return s.PauseForLead(ctx, leadID, "lead unsubscribed")
	default:
		return fmt.Errorf("unknown engagement event %q", event)
	}
}

// SweepDue claims due sequences and enqueues one step job per claim.
// Returns how many steps were dispatched.
func (s *Service) SweepDue(ctx context.Context) (int, error) {
	claimed, err := s.repo.ClaimDue(ctx, s.now(), claimLease, sweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("claim due sequences: %w", err)
	}

	dispatched := 0
	for _, seq := range claimed {
		task, err := dispatch.NewSequenceStepTask(dispatch.SequenceStepPayload{
			SequenceID: seq.ID.String(),
			LeadID:     seq.LeadID.String(),
			Step:       seq.CurrentStep + 1,
		})
		if err != nil {
			return dispatched, err
		}
		if _, err := s.enqueuer.Enqueue(ctx, task, dispatch.Options{Priority: 2}); err != nil {
			return dispatched, fmt.Errorf("enqueue step for sequence %s: %w", seq.ID, err)
		}
		dispatched++
	}
	return dispatched, nil
}

// ExecuteStep sends one follow-up step. Ineligible leads pause the
// sequence and skip the step; only transport failures are retried.
func (s *Service) ExecuteStep(ctx context.Context, payload dispatch.SequenceStepPayload) (dispatch.Result, error) {
	sequenceID, err := uuid.Parse(payload.SequenceID)
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("bad sequence id: %w", err)
	}

	seq, err := s.repo.GetByID(ctx, sequenceID)
	if errors.Is(err, ErrSequenceNotFound) {
		return dispatch.Skip("sequence no longer exists"), nil
	}
	if err != nil {
		return dispatch.Result{}, err
	}

	if seq.State != StateActive {
		return dispatch.Skip(fmt.Sprintf("sequence is %s", seq.State)), nil
	}
	if payload.Step != seq.CurrentStep+1 {
		return dispatch.Skip("stale step, sequence has moved on"), nil
	}

	lead, err := s.leadRepo.GetByID(ctx, seq.LeadID)
	if err != nil {
		return dispatch.Result{}, err
	}

	if reason, eligible := stepEligibility(lead); !eligible {
		if err := seq.Pause(reason); err != nil {
			return dispatch.Result{}, err
		}
		if err := s.repo.Save(ctx, seq); err != nil {
			return dispatch.Result{}, err
		}
		return dispatch.Skip(reason), nil
	}

	subject, body := StepMessage(seq.Type, payload.Step, lead)
	if err := s.sender.SendEmail(ctx, lead.Email, subject, body); err != nil {
		return dispatch.Result{}, fmt.Errorf("send step %d: %w", payload.Step, err)
	}

	if err := seq.Advance(s.now()); err != nil {
		return dispatch.Result{}, err
	}
	if err := s.repo.Save(ctx, seq); err != nil {
		return dispatch.Result{}, err
	}

	s.log.Info("sequence_step_sent",
		"sequence_id", seq.ID.String(),
		"lead_id", seq.LeadID.String(),
		"step", payload.Step,
		"state", string(seq.State),
	)
	return dispatch.Sent(), nil
}

// stepEligibility decides whether a lead should still receive drip steps.
func stepEligibility(lead leads.Lead) (string, bool) {
	switch {
	case lead.Status.Closed():
		return fmt.Sprintf("lead is %s", lead.Status), false
	case lead.CustomerRespondedAt != nil:
		return "lead already replied", false
	case lead.Email == "":
		return "lead has no email address", false
	default:
		return "", true
	}
}
