package response

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadflow_backend/internal/dispatch"
	"leadflow_backend/internal/leads"
	"leadflow_backend/internal/sequence"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type fakeLeadStore struct {
	lead         leads.Lead
	getErr       error
	responded    bool
	interactions []leads.Interaction
}

func (f *fakeLeadStore) GetByID(ctx context.Context, id uuid.UUID) (leads.Lead, error) {
	if f.getErr != nil {
		return leads.Lead{}, f.getErr
	}
	return f.lead, nil
}

func (f *fakeLeadStore) MarkResponded(ctx context.Context, id uuid.UUID, at time.Time) error {
	f.responded = true
	return nil
}

func (f *fakeLeadStore) AddInteraction(ctx context.Context, i leads.Interaction) (leads.Interaction, error) {
	f.interactions = append(f.interactions, i)
	return i, nil
}

type fakeSequenceStarter struct {
	started bool
	leadID  uuid.UUID
}

func (f *fakeSequenceStarter) CreateForLead(ctx context.Context, leadID uuid.UUID, score int, serviceType string) (sequence.Sequence, error) {
	f.started = true
	f.leadID = leadID
	return sequence.Sequence{LeadID: leadID}, nil
}

type fakeEmailSender struct {
	sent []string
	err  error
}

func (f *fakeEmailSender) SendEmail(ctx context.Context, to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, task *asynq.Task, opts dispatch.Options) (dispatch.JobHandle, error) {
	f.tasks = append(f.tasks, task)
	return dispatch.JobHandle{ID: "test"}, nil
}

func newTestService(store *fakeLeadStore, starter *fakeSequenceStarter, email *fakeEmailSender, enqueuer *fakeEnqueuer, now time.Time) *Service {
	svc := NewService(store, starter, email, nil, enqueuer, time.UTC, logger.New("test"))
	svc.now = func() time.Time { return now }
	return svc
}

func insideWindow() time.Time {
	return time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
}

func TestRespond_SendsEmailAndStartsSequence(t *testing.T) {
	leadID := uuid.New()
	store := &fakeLeadStore{lead: leads.Lead{
		ID:          leadID,
		FirstName:   "Ada",
		Email:       "ada@example.com",
		ServiceType: leads.ServiceWedding,
		Status:      leads.StatusNew,
		Score:       65,
		CreatedAt:   insideWindow().Add(-time.Minute),
	}}
	starter := &fakeSequenceStarter{}
	email := &fakeEmailSender{}
	enqueuer := &fakeEnqueuer{}

	svc := newTestService(store, starter, email, enqueuer, insideWindow())

	result, err := svc.Respond(context.Background(), leadID)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if result.Status != dispatch.StatusSent {
		t.Fatalf("expected sent, got %+v", result)
	}
	if len(email.sent) != 1 || email.sent[0] != "ada@example.com" {
		t.Fatalf("expected one email to the lead, got %v", email.sent)
	}
	if !store.responded {
		t.Fatalf("expected lead marked responded")
	}
	if len(store.interactions) != 1 || store.interactions[0].Kind != leads.InteractionOutbound {
		t.Fatalf("expected one outbound interaction, got %+v", store.interactions)
	}
	if !starter.started || starter.leadID != leadID {
		t.Fatalf("expected sequence started for the lead")
	}
	if len(enqueuer.tasks) != 1 || enqueuer.tasks[0].Type() != dispatch.TypeAnalyticsEvent {
		t.Fatalf("expected one analytics event enqueued, got %d tasks", len(enqueuer.tasks))
	}
}

func TestRespond_AlreadyContactedSkips(t *testing.T) {
	respondedAt := insideWindow().Add(-time.Hour)
	store := &fakeLeadStore{lead: leads.Lead{
		ID:          uuid.New(),
		Email:       "ada@example.com",
		Status:      leads.StatusContacted,
		RespondedAt: &respondedAt,
	}}
	email := &fakeEmailSender{}
	svc := newTestService(store, &fakeSequenceStarter{}, email, &fakeEnqueuer{}, insideWindow())

	result, err := svc.Respond(context.Background(), store.lead.ID)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if result.Status != dispatch.StatusSkipped {
		t.Fatalf("expected skip, got %+v", result)
	}
	if len(email.sent) != 0 {
		t.Fatalf("expected no email for contacted lead")
	}
}

func TestRespond_DuplicateSkips(t *testing.T) {
	original := uuid.New()
	store := &fakeLeadStore{lead: leads.Lead{
		ID:          uuid.New(),
		Email:       "ada@example.com",
		Status:      leads.StatusNew,
		DuplicateOf: &original,
	}}
	svc := newTestService(store, &fakeSequenceStarter{}, &fakeEmailSender{}, &fakeEnqueuer{}, insideWindow())

	result, err := svc.Respond(context.Background(), store.lead.ID)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if result.Status != dispatch.StatusSkipped {
		t.Fatalf("expected skip for duplicate, got %+v", result)
	}
}

func TestRespond_MissingLeadSkips(t *testing.T) {
	store := &fakeLeadStore{getErr: leads.ErrLeadNotFound}
	svc := newTestService(store, &fakeSequenceStarter{}, &fakeEmailSender{}, &fakeEnqueuer{}, insideWindow())

	result, err := svc.Respond(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if result.Status != dispatch.StatusSkipped {
		t.Fatalf("expected skip for missing lead, got %+v", result)
	}
}

func TestRespond_OutsideWindowReschedules(t *testing.T) {
	store := &fakeLeadStore{lead: leads.Lead{
		ID:     uuid.New(),
		Email:  "ada@example.com",
		Status: leads.StatusNew,
	}}
	email := &fakeEmailSender{}
	lateNight := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	svc := newTestService(store, &fakeSequenceStarter{}, email, &fakeEnqueuer{}, lateNight)

	result, err := svc.Respond(context.Background(), store.lead.ID)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if result.Status != dispatch.StatusRescheduled {
		t.Fatalf("expected reschedule, got %+v", result)
	}
	if result.Delay != 9*time.Hour {
		t.Fatalf("expected 9h delay to the 8:00 opening, got %s", result.Delay)
	}
	if len(email.sent) != 0 {
		t.Fatalf("no email may be sent outside the window")
	}
}

func TestRespond_UnreachableLeadSkips(t *testing.T) {
	store := &fakeLeadStore{lead: leads.Lead{
		ID:     uuid.New(),
		Status: leads.StatusNew,
	}}
	svc := newTestService(store, &fakeSequenceStarter{}, &fakeEmailSender{}, &fakeEnqueuer{}, insideWindow())

	result, err := svc.Respond(context.Background(), store.lead.ID)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if result.Status != dispatch.StatusSkipped {
		t.Fatalf("expected skip for unreachable lead, got %+v", result)
	}
}

func TestRespond_EmailFailureRetries(t *testing.T) {
	store := &fakeLeadStore{lead: leads.Lead{
		ID:     uuid.New(),
		Email:  "ada@example.com",
		Status: leads.StatusNew,
	}}
	email := &fakeEmailSender{err: errors.New("smtp down")}
	svc := newTestService(store, &fakeSequenceStarter{}, email, &fakeEnqueuer{}, insideWindow())

	if _, err := svc.Respond(context.Background(), store.lead.ID); err == nil {
		t.Fatalf("expected transport error to surface for retry")
	}
	if store.responded {
		t.Fatalf("failed send must not mark the lead responded")
	}
}

func TestUntilSendWindow(t *testing.T) {
	cases := []struct {
		hour, minute int
		want         time.Duration
	}{
		{8, 0, 0},
		{12, 30, 0},
		{20, 59, 0},
		{21, 0, 11 * time.Hour},
		{23, 0, 9 * time.Hour},
		{3, 0, 5 * time.Hour},
		{7, 59, time.Minute},
	}

	for _, tc := range cases {
		now := time.Date(2026, 3, 10, tc.hour, tc.minute, 0, 0, time.UTC)
		if got := untilSendWindow(now); got != tc.want {
			t.Fatalf("%02d:%02d: expected delay %s, got %s", tc.hour, tc.minute, tc.want, got)
		}
	}
}
