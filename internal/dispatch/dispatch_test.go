package dispatch

import (
	"testing"
	"time"
)

func TestQueueName_ClampsPriority(t *testing.T) {
	if got := QueueName(DomainResponse, 0); got != "response.p1" {
		t.Fatalf("expected response.p1 for priority 0, got %s", got)
	}
	if got := QueueName(DomainResponse, 9); got != "response.p5" {
		t.Fatalf("expected response.p5 for priority 9, got %s", got)
	}
	if got := QueueName(DomainSync, 3); got != "sync.p3" {
		t.Fatalf("expected sync.p3, got %s", got)
	}
}

func TestDomainQueues_StrictWeights(t *testing.T) {
	queues := DomainQueues(DomainNotification)
	if len(queues) != 5 {
		t.Fatalf("expected 5 queues, got %d", len(queues))
	}
	if queues["notification.p1"] != 5 {
		t.Fatalf("expected p1 weight 5, got %d", queues["notification.p1"])
	}
	if queues["notification.p5"] != 1 {
		t.Fatalf("expected p5 weight 1, got %d", queues["notification.p5"])
	}
}

func TestTaskDomain(t *testing.T) {
	cases := map[string]Domain{
		TypeInstantResponse: DomainResponse,
		TypeSequenceStep:    DomainResponse,
		TypeEscalation:      DomainNotification,
		TypeSLAScan:         DomainNotification,
		TypeCRMPush:         DomainSync,
		TypeWebhookReplay:   DomainSync,
		TypeAnalyticsEvent:  DomainAnalytics,
		TypeDailyRollup:     DomainAnalytics,
		"unnamespaced":      DomainAnalytics,
	}
	for taskType, want := range cases {
		if got := TaskDomain(taskType); got != want {
			t.Fatalf("task %q: expected domain %s, got %s", taskType, want, got)
		}
	}
}

func TestDefaultPriority_ResponseIsMostUrgent(t *testing.T) {
	if got := DefaultPriority(DomainResponse); got != 1 {
		t.Fatalf("expected response default priority 1, got %d", got)
	}
	if got := DefaultPriority(DomainAnalytics); got != 5 {
		t.Fatalf("expected analytics default priority 5, got %d", got)
	}
}

func TestRetryDelay_ExponentialWithCap(t *testing.T) {
	delay := RetryDelay(30 * time.Second)

	if got := delay(0, nil, nil); got != 30*time.Second {
		t.Fatalf("attempt 0: expected 30s, got %s", got)
	}
	if got := delay(1, nil, nil); got != time.Minute {
		t.Fatalf("attempt 1: expected 1m, got %s", got)
	}
	if got := delay(3, nil, nil); got != 4*time.Minute {
		t.Fatalf("attempt 3: expected 4m, got %s", got)
	}
	if got := delay(20, nil, nil); got != time.Hour {
		t.Fatalf("attempt 20: expected 1h cap, got %s", got)
	}
	// Shift overflow must still land on the cap.
	if got := delay(62, nil, nil); got != time.Hour {
		t.Fatalf("attempt 62: expected 1h cap, got %s", got)
	}
}

func TestRetryDelay_ZeroBaseUsesDefault(t *testing.T) {
	delay := RetryDelay(0)
	if got := delay(0, nil, nil); got != 30*time.Second {
		t.Fatalf("expected default base 30s, got %s", got)
	}
}

func TestResultConstructors(t *testing.T) {
	if got := Sent(); got.Status != StatusSent {
		t.Fatalf("expected sent status, got %s", got.Status)
	}

	skipped := Skip("already handled")
	if skipped.Status != StatusSkipped || skipped.Reason != "already handled" {
		t.Fatalf("unexpected skip result: %+v", skipped)
	}

	rescheduled := Reschedule(90 * time.Minute)
	if rescheduled.Status != StatusRescheduled || rescheduled.Delay != 90*time.Minute {
		t.Fatalf("unexpected reschedule result: %+v", rescheduled)
	}
}
