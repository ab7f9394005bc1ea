package dispatch

import (
	"context"
	"testing"
	"time"

	"leadflow_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Within one domain, a waiting priority-1 job is dequeued before a
// priority-5 job even when the low-priority job arrived first.
func TestServer_UrgentQueueDrainsFirst(t *testing.T) {
	srv := miniredis.RunT(t)
	cfg := testDispatchConfig{redisURL: "redis://" + srv.Addr()}

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	low, err := NewInstantResponseTask(uuid.New())
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if _, err := client.Enqueue(ctx, low, Options{Priority: 5}); err != nil {
		t.Fatalf("enqueue low: %v", err)
	}
	high, err := NewInstantResponseTask(uuid.New())
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if _, err := client.Enqueue(ctx, high, Options{Priority: 1}); err != nil {
		t.Fatalf("enqueue high: %v", err)
	}

	server, err := NewServer(cfg, client, logger.New("test"))
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	processed := make(chan string, 2)
	server.Handle(TypeInstantResponse, func(ctx context.Context, task *asynq.Task) (Result, error) {
		queue, _ := asynq.GetQueueName(ctx)
		processed <- queue
		return Sent(), nil
	})

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Run(runCtx) }()

	var order []string
	for len(order) < 2 {
		select {
		case queue := <-processed:
			order = append(order, queue)
		case <-time.After(10 * time.Second):
			cancel()
			t.Fatalf("timed out waiting for jobs, processed %v", order)
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("server run: %v", err)
	}

	if order[0] != "response.p1" || order[1] != "response.p5" {
		t.Fatalf("expected response.p1 before response.p5, got %v", order)
	}
}
