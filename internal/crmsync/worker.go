package crmsync

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

// LeadSource loads leads for sync. Implemented by leads.Repository.
type LeadSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (leads.Lead, error)
}

// leadPayload is the canonical wire shape pushed to the CRM.
type leadPayload struct {
	ID             string     `json:"id"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone"`
	Company        string     `json:"company"`
	ServiceType    string     `json:"serviceType"`
	PassengerCount int        `json:"passengerCount"`
	EstimatedValue int        `json:"estimatedValue"`
	ServiceDate    *time.Time `json:"serviceDate,omitempty"`
	Source         string     `json:"source"`
	Status         string     `json:"status"`
	Score          int        `json:"score"`
	PriorityLevel  int        `json:"priorityLevel"`
	RespondedAt    *time.Time `json:"respondedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Worker owns the CRM push job handler.
type Worker struct {
	client   *Client
	leadRepo LeadSource
	log      *logger.Logger
}

// NewWorker creates the crmsync worker. The client may be nil when sync is
// disabled; pushes then skip.
func NewWorker(client *Client, leadRepo LeadSource, log *logger.Logger) *Worker {
	return &Worker{client: client, leadRepo: leadRepo, log: log}
}

// Register mounts the push handler on the dispatch server.
func (w *Worker) Register(server *dispatch.Server) {
	server.Handle(dispatch.TypeCRMPush, w.HandlePush)
}

// HandlePush syncs one lead to the CRM.
func (w *Worker) HandlePush(ctx context.Context, task *asynq.Task) (dispatch.Result, error) {
	if w.client == nil {
		return dispatch.Skip("crm sync disabled"), nil
	}

	payload, err := dispatch.ParseCRMPushPayload(task)
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
	if lead.DuplicateOf != nil {
		return dispatch.Skip("duplicate inquiries are not synced"), nil
	}

	if err := w.client.Push(ctx, toPayload(lead)); err != nil {
		return dispatch.Result{}, err
	}

	w.log.Info("crm_lead_pushed", "lead_id", lead.ID.String(), "status", string(lead.Status))
	return dispatch.Sent(), nil
}

func toPayload(lead leads.Lead) leadPayload {
	return leadPayload{
		ID:             lead.ID.String(),
		FirstName:      lead.FirstName,
		LastName:       lead.LastName,
		Email:          lead.Email,
		Phone:          lead.Phone,
		Company:        lead.Company,
		ServiceType:    lead.ServiceType,
		PassengerCount: lead.PassengerCount,
		EstimatedValue: lead.EstimatedValue,
		ServiceDate:    lead.ServiceDate,
		Source:         lead.Source,
		Status:         string(lead.Status),
		Score:          lead.Score,
		PriorityLevel:  lead.PriorityLevel,
		RespondedAt:    lead.RespondedAt,
		CreatedAt:      lead.CreatedAt,
	}
}
