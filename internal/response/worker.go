package response

import (
	"context"
	"fmt"

	"leadflow_backend/internal/dispatch"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Worker owns the instant-response job handler.
type Worker struct {
	service *Service
}

// NewWorker creates the response worker.
func NewWorker(service *Service) *Worker {
	return &Worker{service: service}
}

// Register mounts the instant-response handler on the dispatch server.
func (w *Worker) Register(server *dispatch.Server) {
	server.Handle(dispatch.TypeInstantResponse, w.HandleInstantResponse)
}

// HandleInstantResponse sends the first-touch message for one lead.
func (w *Worker) HandleInstantResponse(ctx context.Context, task *asynq.Task) (dispatch.Result, error) {
	payload, err := dispatch.ParseInstantResponsePayload(task)
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("bad lead id: %w", asynq.SkipRetry)
	}
	return w.service.Respond(ctx, leadID)
}
