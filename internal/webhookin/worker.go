package webhookin

import (
	"context"
	"fmt"

	"leadflow_backend/internal/dispatch"

	"github.com/hibiken/asynq"
)

// Worker owns the webhook replay job handler.
type Worker struct {
	service *Service
}

// NewWorker creates the webhookin worker.
func NewWorker(service *Service) *Worker {
	return &Worker{service: service}
}

// Register mounts the replay handler on the dispatch server.
func (w *Worker) Register(server *dispatch.Server) {
	server.Handle(dispatch.TypeWebhookReplay, w.HandleReplay)
}

// HandleReplay re-processes deferred webhook events.
func (w *Worker) HandleReplay(ctx context.Context, task *asynq.Task) (dispatch.Result, error) {
	report, err := w.service.Replay(ctx)
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("webhook replay: %w", err)
	}
	if report.Attempted == 0 {
		return dispatch.Skip("no deferred events"), nil
	}
	return dispatch.Sent(), nil
}
