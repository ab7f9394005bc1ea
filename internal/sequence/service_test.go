package sequence

import (
	"context"
	"testing"
	"time"

	"leadflow_backend/internal/dispatch"
	"leadflow_backend/internal/leads"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type fakeStore struct {
	seq     Sequence
	active  bool
	claimed []Sequence
	saved   []Sequence
	created []Sequence
}

func (f *fakeStore) Create(ctx context.Context, s Sequence) (Sequence, error) {
	s.ID = uuid.New()
	f.created = append(f.created, s)
	return s, nil
}

func (f *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (Sequence, error) {
	if f.seq.ID != id {
		return Sequence{}, ErrSequenceNotFound
	}
	return f.seq, nil
}

func (f *fakeStore) GetActiveByLead(ctx context.Context, leadID uuid.UUID) (Sequence, bool, error) {
	return f.seq, f.active, nil
}

func (f *fakeStore) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]Sequence, error) {
	return f.claimed, nil
}

func (f *fakeStore) Save(ctx context.Context, s Sequence) error {
	f.saved = append(f.saved, s)
	return nil
}

func (f *fakeStore) IncrementEngagement(ctx context.Context, leadID uuid.UUID, column string) error {
	return nil
}

type fakeLeadSource struct {
	lead leads.Lead
}

func (f *fakeLeadSource) GetByID(ctx context.Context, id uuid.UUID) (leads.Lead, error) {
	return f.lead, nil
}

type fakeStepSender struct {
	sent []string
}

func (f *fakeStepSender) SendEmail(ctx context.Context, to, subject, body string) error {
	f.sent = append(f.sent, to)
	return nil
}

type fakeStepEnqueuer struct {
	tasks []*asynq.Task
	opts  []dispatch.Options
}

func (f *fakeStepEnqueuer) Enqueue(ctx context.Context, task *asynq.Task, opts dispatch.Options) (dispatch.JobHandle, error) {
	f.tasks = append(f.tasks, task)
	f.opts = append(f.opts, opts)
	return dispatch.JobHandle{ID: "test"}, nil
}

func newStepTestService(store *fakeStore, source *fakeLeadSource, sender *fakeStepSender, enqueuer *fakeStepEnqueuer, now time.Time) *Service {
	svc := NewService(store, source, enqueuer, sender, logger.New("test"))
	svc.now = func() time.Time { return now }
	return svc
}

func activeSequence(leadID uuid.UUID, createdAt time.Time) Sequence {
	next := createdAt.Add(3 * 24 * time.Hour)
	return Sequence{
		ID:          uuid.New(),
		LeadID:      leadID,
		Type:        TypeStandard,
		CurrentStep: 1,
		TotalSteps:  4,
		NextRunAt:   &next,
		State:       StateActive,
		SentCount:   1,
		CreatedAt:   createdAt,
	}
}

// A lead the instant-response worker has already answered still gets its
// follow-up steps; only a reply from the lead stops the drip.
func TestExecuteStep_AnsweredLeadStillGetsDrip(t *testing.T) {
	now := time.Date(2026, 3, 13, 9, 0, 0, 0, time.UTC)
	respondedAt := now.Add(-3 * 24 * time.Hour)
	leadID := uuid.New()

	store := &fakeStore{seq: activeSequence(leadID, respondedAt)}
	source := &fakeLeadSource{lead: leads.Lead{
		ID:          leadID,
		FirstName:   "Ada",
		Email:       "ada@example.com",
		Status:      leads.StatusContacted,
		RespondedAt: &respondedAt,
	}}
	sender := &fakeStepSender{}
	svc := newStepTestService(store, source, sender, &fakeStepEnqueuer{}, now)

	result, err := svc.ExecuteStep(context.Background(), dispatch.SequenceStepPayload{
		SequenceID: store.seq.ID.String(),
		LeadID:     leadID.String(),
		Step:       2,
	})
	if err != nil {
		t.Fatalf("execute step: %v", err)
	}
	if result.Status != dispatch.StatusSent {
		t.Fatalf("expected sent, got %+v", result)
	}
	if len(sender.sent) != 1 || sender.sent[0] != "ada@example.com" {
		t.Fatalf("expected step email to the lead, got %v", sender.sent)
	}
	if len(store.saved) != 1 {
		t.Fatalf("expected one save, got %d", len(store.saved))
	}
	advanced := store.saved[0]
	if advanced.CurrentStep != 2 || advanced.SentCount != 2 {
		t.Fatalf("expected sequence advanced to step 2, got step %d sent %d", advanced.CurrentStep, advanced.SentCount)
	}
	if advanced.State != StateActive {
		t.Fatalf("expected sequence still active, got %s", advanced.State)
	}
}

func TestExecuteStep_RepliedLeadPausesSequence(t *testing.T) {
	now := time.Date(2026, 3, 13, 9, 0, 0, 0, time.UTC)
	repliedAt := now.Add(-time.Hour)
	leadID := uuid.New()

	store := &fakeStore{seq: activeSequence(leadID, now.Add(-3*24*time.Hour))}
	source := &fakeLeadSource{lead: leads.Lead{
		ID:                  leadID,
		Email:               "ada@example.com",
		Status:              leads.StatusContacted,
		CustomerRespondedAt: &repliedAt,
	}}
	sender := &fakeStepSender{}
	svc := newStepTestService(store, source, sender, &fakeStepEnqueuer{}, now)

	result, err := svc.ExecuteStep(context.Background(), dispatch.SequenceStepPayload{
		SequenceID: store.seq.ID.String(),
		LeadID:     leadID.String(),
		Step:       2,
	})
	if err != nil {
		t.Fatalf("execute step: %v", err)
	}
	if result.Status != dispatch.StatusSkipped {
		t.Fatalf("expected skip for replied lead, got %+v", result)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("no email may be sent once the lead replied")
	}
	if len(store.saved) != 1 || store.saved[0].State != StatePaused {
		t.Fatalf("expected sequence paused, got %+v", store.saved)
	}
}

func TestExecuteStep_StaleStepSkips(t *testing.T) {
	now := time.Date(2026, 3, 13, 9, 0, 0, 0, time.UTC)
	leadID := uuid.New()
	store := &fakeStore{seq: activeSequence(leadID, now.Add(-3*24*time.Hour))}
	store.seq.CurrentStep = 2
	svc := newStepTestService(store, &fakeLeadSource{}, &fakeStepSender{}, &fakeStepEnqueuer{}, now)

	result, err := svc.ExecuteStep(context.Background(), dispatch.SequenceStepPayload{
		SequenceID: store.seq.ID.String(),
		LeadID:     leadID.String(),
		Step:       2,
	})
	if err != nil {
		t.Fatalf("execute step: %v", err)
	}
	if result.Status != dispatch.StatusSkipped {
		t.Fatalf("expected skip for stale step, got %+v", result)
	}
}

func TestSweepDue_EnqueuesClaimedSteps(t *testing.T) {
	now := time.Date(2026, 3, 13, 9, 0, 0, 0, time.UTC)
	store := &fakeStore{claimed: []Sequence{
		activeSequence(uuid.New(), now.Add(-3*24*time.Hour)),
		activeSequence(uuid.New(), now.Add(-4*24*time.Hour)),
	}}
	enqueuer := &fakeStepEnqueuer{}
	svc := newStepTestService(store, &fakeLeadSource{}, &fakeStepSender{}, enqueuer, now)

	dispatched, err := svc.SweepDue(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if dispatched != 2 {
		t.Fatalf("expected 2 dispatched steps, got %d", dispatched)
	}
	if len(enqueuer.tasks) != 2 {
		t.Fatalf("expected 2 step jobs, got %d", len(enqueuer.tasks))
	}
	for i, task := range enqueuer.tasks {
		if task.Type() != dispatch.TypeSequenceStep {
			t.Fatalf("task %d: expected %s, got %s", i, dispatch.TypeSequenceStep, task.Type())
		}
		if enqueuer.opts[i].Priority != 2 {
			t.Fatalf("task %d: expected priority 2, got %d", i, enqueuer.opts[i].Priority)
		}
	}
}

func TestCreateForLead_ExistingActiveSequenceKept(t *testing.T) {
	now := time.Date(2026, 3, 13, 9, 0, 0, 0, time.UTC)
	leadID := uuid.New()
	store := &fakeStore{seq: activeSequence(leadID, now), active: true}
	svc := newStepTestService(store, &fakeLeadSource{}, &fakeStepSender{}, &fakeStepEnqueuer{}, now)

	got, err := svc.CreateForLead(context.Background(), leadID, 50, "wedding")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got.ID != store.seq.ID {
		t.Fatalf("expected the existing sequence back, got %s", got.ID)
	}
	if len(store.created) != 0 {
		t.Fatalf("no new sequence may be created, got %d", len(store.created))
	}
}
