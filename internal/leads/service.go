package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"leadflow_backend/internal/dispatch"
	"leadflow_backend/internal/scoring"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/phone"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Enqueuer places background jobs. Implemented by dispatch.Client.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts dispatch.Options) (dispatch.JobHandle, error)
}

// FactorSource loads the active scoring model. Implemented by scoring.Repository.
type FactorSource interface {
	ListActive(ctx context.Context) ([]scoring.Factor, error)
}

// SequencePauser stops an active drip sequence when the lead responds.
// Implemented by the sequence service.
type SequencePauser interface {
	PauseForLead(ctx context.Context, leadID uuid.UUID, reason string) error
}

// Notifier raises operator-facing alerts. Implemented by the notify service.
type Notifier interface {
	HighPriorityLead(ctx context.Context, leadID uuid.UUID, displayName string, score, priority int) error
}

// Service implements lead intake and lifecycle management.
type Service struct {
	repo     *Repository
	factors  FactorSource
	enqueuer Enqueuer
	pauser   SequencePauser
	notifier Notifier
	cfg      config.IntakeConfig
	log      *logger.Logger
	now      func() time.Time
}

// NewService creates the lead service.
func NewService(repo *Repository, factors FactorSource, enqueuer Enqueuer, pauser SequencePauser, notifier Notifier, cfg config.IntakeConfig, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		factors:  factors,
		enqueuer: enqueuer,
		pauser:   pauser,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// IntakeRequest is a new inbound inquiry.
type IntakeRequest struct {
	FirstName        string     `json:"firstName" validate:"max=100"`
	LastName         string     `json:"lastName" validate:"max=100"`
	Email            string     `json:"email" validate:"omitempty,email"`
	Phone            string     `json:"phone" validate:"max=32"`
	Company          string     `json:"company" validate:"max=200"`
	ServiceType      string     `json:"serviceType" validate:"omitempty,oneof=corporate wedding airport_transfer hourly point_to_point"`
	PassengerCount   int        `json:"passengerCount" validate:"min=0,max=500"`
	EstimatedValue   int        `json:"estimatedValue" validate:"min=0"`
	DistanceFromBase int        `json:"distanceFromBase" validate:"min=0"`
	ServiceDate      *time.Time `json:"serviceDate"`
	Source           string     `json:"source" validate:"max=100"`
}

// IntakeResult reports what intake did with the inquiry.
type IntakeResult struct {
	Lead      Lead `json:"lead"`
	Duplicate bool `json:"duplicate"`
}

// Intake records an inquiry. A matching contact seen within the dedup
// window links the inquiry to the existing lead instead of starting a new
// pipeline; attributes of the original are never overwritten. New leads
// are scored and handed to the response and analytics domains.
func (s *Service) Intake(ctx context.Context, req IntakeRequest) (IntakeResult, error) {
	if req.Email == "" && req.Phone == "" {
		return IntakeResult{}, apperr.Validation("an email address or phone number is required")
	}

	now := s.now()
	email := strings.ToLower(strings.TrimSpace(req.Email))
	normalizedPhone := phone.NormalizeE164(req.Phone)

	original, found, err := s.repo.FindRecentByContact(ctx, email, normalizedPhone, now.Add(-s.cfg.GetDedupWindow()))
	if err != nil {
		return IntakeResult{}, fmt.Errorf("dedup lookup: %w", err)
	}
	if found {
		return s.linkDuplicate(ctx, original, req, email, normalizedPhone)
	}

	lead := s.buildLead(req, email, normalizedPhone)
	result := scoring.Score(lead.ScoringInput(now), s.mustFactors(ctx))
	lead.Score = result.Total
	lead.PriorityLevel = scoring.PriorityLevel(result.Total)

	created, err := s.repo.Create(ctx, lead)
	if err != nil {
		return IntakeResult{}, fmt.Errorf("create lead: %w", err)
	}

	s.log.Info("lead_created",
		"lead_id", created.ID.String(),
		"score", created.Score,
		"priority", created.PriorityLevel,
		"source", created.Source,
	)

	s.enqueueIntakeJobs(ctx, created)
	return IntakeResult{Lead: created}, nil
}

// linkDuplicate stores the repeat inquiry pointing at the original lead and
// notes it on the original's timeline. No attribute merge, no new pipeline.
func (s *Service) linkDuplicate(ctx context.Context, original Lead, req IntakeRequest, email, normalizedPhone string) (IntakeResult, error) {
	dup := s.buildLead(req, email, normalizedPhone)
	dup.DuplicateOf = &original.ID

	if _, err := s.repo.Create(ctx, dup); err != nil {
		return IntakeResult{}, fmt.Errorf("record duplicate: %w", err)
	}

	_, err := s.repo.AddInteraction(ctx, Interaction{
		LeadID:     original.ID,
		Kind:       InteractionNote,
		Channel:    "system",
		Summary:    fmt.Sprintf("repeat inquiry received via %s", req.Source),
		OccurredAt: s.now(),
	})
	if err != nil {
		return IntakeResult{}, err
	}

	s.log.Info("lead_duplicate_linked",
		"lead_id", original.ID.String(),
		"source", req.Source,
	)
	return IntakeResult{Lead: original, Duplicate: true}, nil
}

func (s *Service) buildLead(req IntakeRequest, email, normalizedPhone string) Lead {
	serviceType := req.ServiceType
	if serviceType == "" {
		serviceType = ServicePointToPoint
	}
	return Lead{
		FirstName:        strings.TrimSpace(req.FirstName),
		LastName:         strings.TrimSpace(req.LastName),
		Email:            email,
		Phone:            normalizedPhone,
		Company:          strings.TrimSpace(req.Company),
		ServiceType:      serviceType,
		PassengerCount:   req.PassengerCount,
		EstimatedValue:   req.EstimatedValue,
		DistanceFromBase: req.DistanceFromBase,
		ServiceDate:      req.ServiceDate,
		Source:           req.Source,
		Status:           StatusNew,
	}
}

// enqueueIntakeJobs fans the new lead out to the background domains.
// Failures here are logged, not returned: the lead is durably stored and
// the SLA scan will catch any lead that missed its instant response.
func (s *Service) enqueueIntakeJobs(ctx context.Context, lead Lead) {
	task, err := dispatch.NewInstantResponseTask(lead.ID)
	if err == nil {
		_, err = s.enqueuer.Enqueue(ctx, task, dispatch.Options{Priority: dispatch.PriorityUrgent})
	}
	if err != nil {
		s.log.Error("enqueue_instant_response_failed", "lead_id", lead.ID.String(), "error", err.Error())
	}

	if lead.PriorityLevel >= 4 && s.notifier != nil {
		name := strings.TrimSpace(lead.FirstName + " " + lead.LastName)
		if name == "" {
			name = lead.Email
		}
		if err := s.notifier.HighPriorityLead(ctx, lead.ID, name, lead.Score, lead.PriorityLevel); err != nil {
			s.log.Error("high_priority_alert_failed", "lead_id", lead.ID.String(), "error", err.Error())
		}
	}

	event, err := dispatch.NewAnalyticsEventTask(dispatch.AnalyticsEventPayload{
		EventType: "lead_created",
		LeadID:    lead.ID.String(),
		Fields:    map[string]any{"score": lead.Score, "priority": lead.PriorityLevel, "source": lead.Source},
	})
	if err == nil {
		_, err = s.enqueuer.Enqueue(ctx, event, dispatch.Options{})
	}
	if err != nil {
		s.log.Error("enqueue_analytics_event_failed", "lead_id", lead.ID.String(), "error", err.Error())
	}

	s.enqueueCRMPush(ctx, lead.ID)
}

// enqueueCRMPush hands the lead to the sync domain. The worker skips when
// no CRM endpoint is configured.
func (s *Service) enqueueCRMPush(ctx context.Context, leadID uuid.UUID) {
	task, err := dispatch.NewCRMPushTask(leadID)
	if err == nil {
		_, err = s.enqueuer.Enqueue(ctx, task, dispatch.Options{})
	}
	if err != nil {
		s.log.Error("enqueue_crm_push_failed", "lead_id", leadID.String(), "error", err.Error())
	}
}

// mustFactors loads the active scoring model, falling back to the built-in
// defaults if the table cannot be read. A lead is never left unscored.
func (s *Service) mustFactors(ctx context.Context) []scoring.Factor {
	factors, err := s.factors.ListActive(ctx)
	if err != nil || len(factors) == 0 {
		if err != nil {
			s.log.DatabaseError("scoring_factors_list", err)
		}
		return scoring.DefaultFactors()
	}
	return factors
}

// Get fetches one lead.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Lead, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrLeadNotFound) {
		return Lead{}, apperr.NotFound("lead not found")
	}
	return lead, err
}

// List returns leads matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Lead, error) {
	return s.repo.List(ctx, filter)
}

// Timeline returns a lead's interactions, oldest first.
func (s *Service) Timeline(ctx context.Context, leadID uuid.UUID) ([]Interaction, error) {
	if _, err := s.Get(ctx, leadID); err != nil {
		return nil, err
	}
	return s.repo.ListInteractions(ctx, leadID)
}

// InteractionRequest records one touchpoint.
type InteractionRequest struct {
	Kind       string     `json:"kind" validate:"required,oneof=call email_reply sms_reply note outbound"`
	Channel    string     `json:"channel" validate:"max=50"`
	Summary    string     `json:"summary" validate:"max=2000"`
	OccurredAt *time.Time `json:"occurredAt"`
}

// RecordInteraction appends a touchpoint. Response-type interactions stop
// the response clock and pause any active drip sequence.
func (s *Service) RecordInteraction(ctx context.Context, leadID uuid.UUID, req InteractionRequest) (Interaction, error) {
	if _, err := s.Get(ctx, leadID); err != nil {
		return Interaction{}, err
	}

	occurredAt := s.now()
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}

	interaction, err := s.repo.AddInteraction(ctx, Interaction{
		LeadID:     leadID,
		Kind:       req.Kind,
		Channel:    req.Channel,
		Summary:    req.Summary,
		OccurredAt: occurredAt,
	})
	if err != nil {
		return Interaction{}, fmt.Errorf("add interaction: %w", err)
	}

	if IsResponse(req.Kind) {
		if err := s.repo.MarkCustomerResponded(ctx, leadID, occurredAt); err != nil {
			return Interaction{}, err
		}
		if s.pauser != nil {
			if err := s.pauser.PauseForLead(ctx, leadID, "lead responded"); err != nil {
				s.log.Error("sequence_pause_failed", "lead_id", leadID.String(), "error", err.Error())
			}
		}
	}

	return interaction, nil
}

// UpdateStatus applies a forward-only lifecycle transition.
func (s *Service) UpdateStatus(ctx context.Context, leadID uuid.UUID, to Status) (Lead, error) {
	return s.updateStatus(ctx, leadID, to, true)
}

func (s *Service) updateStatus(ctx context.Context, leadID uuid.UUID, to Status, pushCRM bool) (Lead, error) {
	if !to.Valid() {
		return Lead{}, apperr.Validation(fmt.Sprintf("unknown status %q", to))
	}

	lead, err := s.Get(ctx, leadID)
	if err != nil {
		return Lead{}, err
	}
	if lead.Status == to {
		return lead, nil
	}
	if !lead.Status.CanTransitionTo(to) {
		return Lead{}, apperr.Processing("status_transition",
			fmt.Sprintf("cannot move lead from %s to %s", lead.Status, to))
	}

	moved, err := s.repo.UpdateStatus(ctx, leadID, lead.Status, to)
	if err != nil {
		return Lead{}, err
	}
	if !moved {
		return Lead{}, apperr.Conflict("lead status changed concurrently")
	}

	s.log.Info("lead_status_changed", "lead_id", leadID.String(), "from", string(lead.Status), "to", string(to))
	if pushCRM {
		s.enqueueCRMPush(ctx, leadID)
	}
	return s.Get(ctx, leadID)
}

// Reopen moves a lost lead back to new. This is the only backward move in
// the lifecycle and is always explicit.
func (s *Service) Reopen(ctx context.Context, leadID uuid.UUID) (Lead, error) {
	lead, err := s.Get(ctx, leadID)
	if err != nil {
		return Lead{}, err
	}
	if lead.Status != StatusLost {
		return Lead{}, apperr.Processing("status_transition",
			fmt.Sprintf("only lost leads can be reopened, lead is %s", lead.Status))
	}

	moved, err := s.repo.UpdateStatus(ctx, leadID, StatusLost, StatusNew)
	if err != nil {
		return Lead{}, err
	}
	if !moved {
		return Lead{}, apperr.Conflict("lead status changed concurrently")
	}

	s.log.Info("lead_reopened", "lead_id", leadID.String())
	return s.Get(ctx, leadID)
}

// UpdateRequest carries an attribute patch. Nil fields are left untouched.
type UpdateRequest struct {
	FirstName        *string    `json:"firstName" validate:"omitempty,max=100"`
	LastName         *string    `json:"lastName" validate:"omitempty,max=100"`
	Email            *string    `json:"email" validate:"omitempty,email"`
	Phone            *string    `json:"phone" validate:"omitempty,max=32"`
	Company          *string    `json:"company" validate:"omitempty,max=200"`
	ServiceType      *string    `json:"serviceType" validate:"omitempty,oneof=corporate wedding airport_transfer hourly point_to_point"`
	PassengerCount   *int       `json:"passengerCount" validate:"omitempty,min=0,max=500"`
	EstimatedValue   *int       `json:"estimatedValue" validate:"omitempty,min=0"`
	DistanceFromBase *int       `json:"distanceFromBase" validate:"omitempty,min=0"`
	ServiceDate      *time.Time `json:"serviceDate"`
}

// Update applies the patch and rescores only when a scoring-relevant
// attribute actually changed.
func (s *Service) Update(ctx context.Context, leadID uuid.UUID, req UpdateRequest) (Lead, error) {
	lead, err := s.Get(ctx, leadID)
	if err != nil {
		return Lead{}, err
	}

	scoringRelevant := false
	apply := func(dst *string, src *string, relevant bool) {
		if src != nil && *src != *dst {
			*dst = strings.TrimSpace(*src)
			scoringRelevant = scoringRelevant || relevant
		}
	}
	applyInt := func(dst *int, src *int, relevant bool) {
		if src != nil && *src != *dst {
			*dst = *src
			scoringRelevant = scoringRelevant || relevant
		}
	}

	apply(&lead.FirstName, req.FirstName, true)
	apply(&lead.LastName, req.LastName, true)
	apply(&lead.Company, req.Company, true)
	apply(&lead.ServiceType, req.ServiceType, true)
	applyInt(&lead.PassengerCount, req.PassengerCount, true)
	applyInt(&lead.EstimatedValue, req.EstimatedValue, true)
	applyInt(&lead.DistanceFromBase, req.DistanceFromBase, true)
	if req.Email != nil && strings.ToLower(strings.TrimSpace(*req.Email)) != lead.Email {
		lead.Email = strings.ToLower(strings.TrimSpace(*req.Email))
		scoringRelevant = true
	}
	if req.Phone != nil {
		normalized := phone.NormalizeE164(*req.Phone)
		if normalized != lead.Phone {
			lead.Phone = normalized
			scoringRelevant = true
		}
	}
	if req.ServiceDate != nil && (lead.ServiceDate == nil || !req.ServiceDate.Equal(*lead.ServiceDate)) {
		lead.ServiceDate = req.ServiceDate
		scoringRelevant = true
	}

	if err := s.repo.UpdateDetails(ctx, lead); err != nil {
		return Lead{}, err
	}

	if scoringRelevant {
		return s.Rescore(ctx, leadID)
	}
	return s.Get(ctx, leadID)
}

// Rescore recomputes the score from the current factor model and persists
// score and priority together.
func (s *Service) Rescore(ctx context.Context, leadID uuid.UUID) (Lead, error) {
	lead, err := s.Get(ctx, leadID)
	if err != nil {
		return Lead{}, err
	}

	result := scoring.Score(lead.ScoringInput(s.now()), s.mustFactors(ctx))
	priority := scoring.PriorityLevel(result.Total)
	if result.Total == lead.Score && priority == lead.PriorityLevel {
		return lead, nil
	}

	if err := s.repo.UpdateScore(ctx, leadID, result.Total, priority); err != nil {
		return Lead{}, err
	}

	s.log.Info("lead_rescored",
		"lead_id", leadID.String(),
		"score", result.Total,
		"priority", priority,
		"previous_score", lead.Score,
	)
	return s.Get(ctx, leadID)
}

// ApplyExternalStatus handles a status pushed by the CRM. Transitions the
// lifecycle forbids are reported as conflicts, never applied. The change
// is not echoed back to the CRM.
func (s *Service) ApplyExternalStatus(ctx context.Context, leadID uuid.UUID, status string) (Lead, error) {
	return s.updateStatus(ctx, leadID, Status(status), false)
}
