package notify

import (
	"testing"
	"time"

	"leadflow_backend/platform/logger"
)

func TestNotificationExpired(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	n := Notification{}
	if n.Expired(now) {
		t.Fatalf("notification without expiry must never expire")
	}

	past := now.Add(-time.Minute)
	n.ExpiresAt = &past
	if !n.Expired(now) {
		t.Fatalf("expected expired notification")
	}

	future := now.Add(time.Minute)
	n.ExpiresAt = &future
	if n.Expired(now) {
		t.Fatalf("expected live notification")
	}
}

func TestNotificationPrimary(t *testing.T) {
	n := Notification{Channels: []string{ChannelEmail, ChannelChat}}
	if got := n.Primary(); got != ChannelEmail {
		t.Fatalf("expected email primary, got %s", got)
	}
	if got := (Notification{}).Primary(); got != "" {
		t.Fatalf("expected empty primary for channel-less notification, got %s", got)
	}
}

func TestChannels_PrimaryFirstOrdering(t *testing.T) {
	log := logger.New("test")

	// Only email configured.
	svc := &Service{transports: Transports{Email: &NoopEmailSender{log: log}}}
	if got := svc.channels(true); len(got) != 1 || got[0] != ChannelEmail {
		t.Fatalf("expected [email], got %v", got)
	}

	// Chat configured, SMS requested but not configured.
	svc = &Service{transports: Transports{
		Email: &NoopEmailSender{log: log},
		Chat:  &ChatClient{},
	}}
	got := svc.channels(true)
	if len(got) != 2 || got[0] != ChannelEmail || got[1] != ChannelChat {
		t.Fatalf("expected [email chat], got %v", got)
	}

	// Everything configured, SMS only on request.
	svc = &Service{transports: Transports{
		Email: &NoopEmailSender{log: log},
		Chat:  &ChatClient{},
		SMS:   &SMSClient{},
	}}
	if got := svc.channels(false); len(got) != 2 {
		t.Fatalf("expected sms excluded without request, got %v", got)
	}
	got = svc.channels(true)
	if len(got) != 3 || got[2] != ChannelSMS {
		t.Fatalf("expected [email chat sms], got %v", got)
	}
}

func TestSeverityLabel(t *testing.T) {
	if got := severityLabel("critical"); got != "CRITICAL SLA BREACH" {
		t.Fatalf("unexpected critical label %q", got)
	}
	if got := severityLabel("urgent"); got != "SLA warning" {
		t.Fatalf("unexpected urgent label %q", got)
	}
}
