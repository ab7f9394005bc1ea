package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type testDispatchConfig struct {
	redisURL string
}

func (c testDispatchConfig) GetRedisURL() string                  { return c.redisURL }
func (c testDispatchConfig) GetDomainConcurrency(string) int      { return 1 }
func (c testDispatchConfig) GetRetryBaseDelay() time.Duration     { return time.Second }
func (c testDispatchConfig) GetCompletedRetention() time.Duration { return time.Hour }

func TestClientEnqueue_RoutesToDomainPriorityQueue(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := NewClient(testDispatchConfig{redisURL: "redis://" + srv.Addr()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	ctx := context.Background()

	task, err := NewInstantResponseTask(uuid.New())
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	handle, err := client.Enqueue(ctx, task, Options{})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if handle.Queue != "response.p1" {
		t.Fatalf("expected response.p1, got %s", handle.Queue)
	}

	escalation, err := NewEscalationTask(uuid.New(), "urgent")
	if err != nil {
		t.Fatalf("new escalation task: %v", err)
	}
	handle, err = client.Enqueue(ctx, escalation, Options{Priority: 3})
	if err != nil {
		t.Fatalf("enqueue escalation: %v", err)
	}
	if handle.Queue != "notification.p3" {
		t.Fatalf("expected notification.p3, got %s", handle.Queue)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: srv.Addr()})
	defer inspector.Close()

	queues, err := inspector.Queues()
	if err != nil {
		t.Fatalf("list queues: %v", err)
	}
	seen := make(map[string]bool, len(queues))
	for _, q := range queues {
		seen[q] = true
	}
	if !seen["response.p1"] || !seen["notification.p3"] {
		t.Fatalf("expected both queues registered, got %v", queues)
	}
}

func TestClientEnqueue_DelayedTaskIsScheduled(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := NewClient(testDispatchConfig{redisURL: "redis://" + srv.Addr()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	task, err := NewCRMPushTask(uuid.New())
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	handle, err := client.Enqueue(context.Background(), task, Options{Delay: time.Hour})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if handle.Queue != "sync.p3" {
		t.Fatalf("expected sync.p3, got %s", handle.Queue)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: srv.Addr()})
	defer inspector.Close()

	info, err := inspector.GetTaskInfo(handle.Queue, handle.ID)
	if err != nil {
		t.Fatalf("task info: %v", err)
	}
	if info.State != asynq.TaskStateScheduled {
		t.Fatalf("expected scheduled state, got %s", info.State)
	}
}

func TestReschedule_KeepsRetryBudget(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := NewClient(testDispatchConfig{redisURL: "redis://" + srv.Addr()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	task, err := NewInstantResponseTask(uuid.New())
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if err := client.reschedule(context.Background(), task, "response.p2", time.Minute, 7); err != nil {
		t.Fatalf("reschedule: %v", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: srv.Addr()})
	defer inspector.Close()

	scheduled, err := inspector.ListScheduledTasks("response.p2")
	if err != nil {
		t.Fatalf("list scheduled: %v", err)
	}
	if len(scheduled) != 1 {
		t.Fatalf("expected one scheduled task, got %d", len(scheduled))
	}
	if scheduled[0].MaxRetry != 7 {
		t.Fatalf("expected retry cap 7 carried over, got %d", scheduled[0].MaxRetry)
	}
}

func TestNewClient_RequiresRedisURL(t *testing.T) {
	if _, err := NewClient(testDispatchConfig{}); err == nil {
		t.Fatalf("expected error for empty redis url")
	}
}
