package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"leadflow_backend/internal/dispatch"
	"leadflow_backend/internal/leads"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// LeadSource loads leads for escalation alerts. Implemented by
// leads.Repository.
type LeadSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (leads.Lead, error)
}

// Worker owns the notification job handlers.
type Worker struct {
	service  *Service
	leadRepo LeadSource
}

// NewWorker creates the notify worker.
func NewWorker(service *Service, leadRepo LeadSource) *Worker {
	return &Worker{service: service, leadRepo: leadRepo}
}

// Register mounts the notification handlers on the dispatch server.
func (w *Worker) Register(server *dispatch.Server) {
	server.Handle(dispatch.TypeNotificationDispatch, w.HandleDispatch)
	server.Handle(dispatch.TypeEscalation, w.HandleEscalation)
}

// HandleDispatch fans one stored notification out to its channels.
func (w *Worker) HandleDispatch(ctx context.Context, task *asynq.Task) (dispatch.Result, error) {
	payload, err := dispatch.ParseNotificationDispatchPayload(task)
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	id, err := uuid.Parse(payload.NotificationID)
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("bad notification id: %w", asynq.SkipRetry)
	}
	return w.service.Deliver(ctx, id)
}

// HandleEscalation turns an overdue-lead escalation into an alert.
// Leads that got a response between the scan and this job are skipped.
func (w *Worker) HandleEscalation(ctx context.Context, task *asynq.Task) (dispatch.Result, error) {
	payload, err := dispatch.ParseEscalationPayload(task)
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("bad lead id: %w", asynq.SkipRetry)
	}

	lead, err := w.leadRepo.GetByID(ctx, leadID)
	if errors.Is(err, leads.ErrLeadNotFound) {
		return dispatch.Skip("lead no longer exists"), nil
	}
	if err != nil {
		return dispatch.Result{}, err
	}

	if lead.RespondedAt != nil {
		return dispatch.Skip("lead was answered before the alert went out"), nil
	}

	name := strings.TrimSpace(lead.FirstName + " " + lead.LastName)
	if name == "" {
		name = lead.Email
	}

	age := time.Since(lead.CreatedAt)
	if err := w.service.EscalationAlert(ctx, leadID, name, payload.Severity, age); err != nil {
		return dispatch.Result{}, err
	}
	return dispatch.Sent(), nil
}
