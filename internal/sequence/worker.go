package sequence

import (
	"context"
	"fmt"

	"leadflow_backend/internal/dispatch"

	"github.com/hibiken/asynq"
)

// Worker owns the sequence job handlers.
type Worker struct {
	service *Service
}

// NewWorker creates the sequence worker.
func NewWorker(service *Service) *Worker {
	return &Worker{service: service}
}

// Register mounts the sequence handlers on the dispatch server.
func (w *Worker) Register(server *dispatch.Server) {
	server.Handle(dispatch.TypeSequenceSweep, w.HandleSweep)
	server.Handle(dispatch.TypeSequenceStep, w.HandleStep)
}

// HandleSweep claims due sequences and fans out their step jobs.
func (w *Worker) HandleSweep(ctx context.Context, task *asynq.Task) (dispatch.Result, error) {
	dispatched, err := w.service.SweepDue(ctx)
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("sequence sweep: %w", err)
	}
	if dispatched == 0 {
		return dispatch.Skip("no sequences due"), nil
	}
	return dispatch.Sent(), nil
}

// HandleStep executes one follow-up step.
func (w *Worker) HandleStep(ctx context.Context, task *asynq.Task) (dispatch.Result, error) {
	payload, err := dispatch.ParseSequenceStepPayload(task)
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return w.service.ExecuteStep(ctx, payload)
}
