package webhookin

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestExtractForm_RequiresContact(t *testing.T) {
	if _, err := ExtractForm([]byte(`{"firstName":"Ada"}`)); err == nil {
		t.Fatalf("expected error for form without email or phone")
	}
}

func TestExtractForm_DefaultsSource(t *testing.T) {
	req, err := ExtractForm([]byte(`{"email":"ada@example.com","serviceType":"wedding"}`))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if req.Source != "website_form" {
		t.Fatalf("expected website_form source, got %s", req.Source)
	}

	req, err = ExtractForm([]byte(`{"email":"ada@example.com","source":"landing_page"}`))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if req.Source != "landing_page" {
		t.Fatalf("expected provided source kept, got %s", req.Source)
	}
}

func TestExtractForm_ServiceDateLayouts(t *testing.T) {
	req, err := ExtractForm([]byte(`{"email":"a@b.c","serviceDate":"2026-04-01"}`))
	if err != nil {
		t.Fatalf("extract date-only: %v", err)
	}
	if req.ServiceDate == nil || !req.ServiceDate.Equal(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date-only parse: %v", req.ServiceDate)
	}

	req, err = ExtractForm([]byte(`{"email":"a@b.c","serviceDate":"2026-04-01T15:30:00Z"}`))
	if err != nil {
		t.Fatalf("extract rfc3339: %v", err)
	}
	if req.ServiceDate == nil || req.ServiceDate.Hour() != 15 {
		t.Fatalf("unexpected rfc3339 parse: %v", req.ServiceDate)
	}

	if _, err := ExtractForm([]byte(`{"email":"a@b.c","serviceDate":"next tuesday"}`)); err == nil {
		t.Fatalf("expected error for unparseable date")
	}
}

func TestExtractForm_MalformedJSON(t *testing.T) {
	if _, err := ExtractForm([]byte(`{oops`)); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
}

func TestExtractEngagement(t *testing.T) {
	event, err := ExtractEngagement([]byte(`{"event":" Opened ","email":" Ada@Example.com "}`))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if event.Event != "opened" {
		t.Fatalf("expected normalized event, got %q", event.Event)
	}
	if event.Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %q", event.Email)
	}

	if _, err := ExtractEngagement([]byte(`{"event":"forwarded","email":"a@b.c"}`)); err == nil {
		t.Fatalf("expected error for unknown event")
	}
	if _, err := ExtractEngagement([]byte(`{"event":"opened"}`)); err == nil {
		t.Fatalf("expected error for missing email")
	}
}

func TestExtractCRMUpdate(t *testing.T) {
	leadID := uuid.New()

	gotID, status, err := ExtractCRMUpdate([]byte(`{"leadId":"` + leadID.String() + `","status":"Qualified"}`))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if gotID != leadID {
		t.Fatalf("expected lead id %s, got %s", leadID, gotID)
	}
	if status != "qualified" {
		t.Fatalf("expected normalized status, got %q", status)
	}

	if _, _, err := ExtractCRMUpdate([]byte(`{"leadId":"not-a-uuid","status":"qualified"}`)); err == nil {
		t.Fatalf("expected error for bad lead id")
	}
	if _, _, err := ExtractCRMUpdate([]byte(`{"leadId":"` + leadID.String() + `","status":"archived"}`)); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}
