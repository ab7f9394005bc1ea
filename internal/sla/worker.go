package sla

import (
	"context"
	"fmt"

	"leadflow_backend/internal/dispatch"

	"github.com/hibiken/asynq"
)

// Worker owns the SLA scan job handler.
type Worker struct {
	service *Service
}

// NewWorker creates the sla worker.
func NewWorker(service *Service) *Worker {
	return &Worker{service: service}
}

// Register mounts the scan handler on the dispatch server.
func (w *Worker) Register(server *dispatch.Server) {
	server.Handle(dispatch.TypeSLAScan, w.HandleScan)
}

// HandleScan runs one scan pass.
func (w *Worker) HandleScan(ctx context.Context, task *asynq.Task) (dispatch.Result, error) {
	report, err := w.service.Scan(ctx)
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("sla scan: %w", err)
	}
	if report.Escalated == 0 {
		return dispatch.Skip("no leads overdue"), nil
	}
	return dispatch.Sent(), nil
}
