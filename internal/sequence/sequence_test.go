package sequence

import (
	"testing"
	"time"

	"leadflow_backend/internal/leads"

	"github.com/google/uuid"
)

func TestChooseType(t *testing.T) {
	if got := ChooseType(85, "point_to_point"); got != TypeHighValue {
		t.Fatalf("expected high_value for score 85, got %s", got)
	}
	if got := ChooseType(85, "corporate"); got != TypeHighValue {
		t.Fatalf("expected high score to outrank corporate, got %s", got)
	}
	if got := ChooseType(50, "corporate"); got != TypeCorporate {
		t.Fatalf("expected corporate track, got %s", got)
	}
	if got := ChooseType(50, "wedding"); got != TypeStandard {
		t.Fatalf("expected standard track, got %s", got)
	}
}

func TestNew_FirstTouchCountsAsSent(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	seq, err := New(uuid.New(), TypeStandard, now)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if seq.State != StateActive {
		t.Fatalf("expected active, got %s", seq.State)
	}
	if seq.CurrentStep != 1 || seq.SentCount != 1 {
		t.Fatalf("expected step 1 already sent, got step %d sent %d", seq.CurrentStep, seq.SentCount)
	}
	if seq.TotalSteps != 4 {
		t.Fatalf("expected 4 standard steps, got %d", seq.TotalSteps)
	}
	if seq.NextRunAt == nil {
		t.Fatalf("active sequence must have a next run time")
	}
	if want := now.Add(3 * 24 * time.Hour); !seq.NextRunAt.Equal(want) {
		t.Fatalf("expected next run %s, got %s", want, seq.NextRunAt)
	}
}

func TestNew_UnknownType(t *testing.T) {
	if _, err := New(uuid.New(), "aggressive", time.Now()); err == nil {
		t.Fatalf("expected error for unknown sequence type")
	}
}

func TestAdvance_ThroughCompletion(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	seq, err := New(uuid.New(), TypeCorporate, now)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	// Corporate has 4 steps; step 1 is done. Advance through 2 and 3.
	for step := 2; step <= 3; step++ {
		if err := seq.Advance(now); err != nil {
			t.Fatalf("advance to step %d: %v", step, err)
		}
		if seq.CurrentStep != step {
			t.Fatalf("expected step %d, got %d", step, seq.CurrentStep)
		}
		if seq.State != StateActive {
			t.Fatalf("expected active at step %d, got %s", step, seq.State)
		}
		if seq.NextRunAt == nil {
			t.Fatalf("active sequence at step %d must have next run", step)
		}
	}

	if err := seq.Advance(now); err != nil {
		t.Fatalf("final advance: %v", err)
	}
	if seq.State != StateCompleted {
		t.Fatalf("expected completed, got %s", seq.State)
	}
	if seq.NextRunAt != nil {
		t.Fatalf("completed sequence must not have next run, got %s", seq.NextRunAt)
	}
	if seq.SentCount != 4 {
		t.Fatalf("expected 4 sends, got %d", seq.SentCount)
	}

	if err := seq.Advance(now); err == nil {
		t.Fatalf("expected error advancing a completed sequence")
	}
}

func TestAdvance_LateExecutionSchedulesSoon(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	seq, err := New(uuid.New(), TypeStandard, created)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	// Executing step 2 long after its offset: the next step's offset is
	// already in the past, so scheduling lands shortly after now.
	late := created.Add(30 * 24 * time.Hour)
	if err := seq.Advance(late); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if seq.NextRunAt == nil {
		t.Fatalf("expected next run to be set")
	}
	if want := late.Add(time.Minute); !seq.NextRunAt.Equal(want) {
		t.Fatalf("expected next run %s, got %s", want, seq.NextRunAt)
	}
}

func TestPauseAndResume(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	seq, err := New(uuid.New(), TypeHighValue, now)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := seq.Pause("lead responded"); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if seq.State != StatePaused {
		t.Fatalf("expected paused, got %s", seq.State)
	}
	if seq.NextRunAt != nil {
		t.Fatalf("paused sequence must not have next run")
	}
	if seq.PauseReason == nil || *seq.PauseReason != "lead responded" {
		t.Fatalf("expected pause reason recorded")
	}

	later := now.Add(2 * time.Hour)
	if err := seq.Resume(later); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if seq.State != StateActive {
		t.Fatalf("expected active after resume, got %s", seq.State)
	}
	if seq.PauseReason != nil {
		t.Fatalf("expected pause reason cleared")
	}
	if want := later.Add(time.Minute); seq.NextRunAt == nil || !seq.NextRunAt.Equal(want) {
		t.Fatalf("expected next run %s, got %v", want, seq.NextRunAt)
	}
}

func TestPause_CompletedStaysCompleted(t *testing.T) {
	seq := Sequence{State: StateCompleted}
	if err := seq.Pause("too late"); err == nil {
		t.Fatalf("expected error pausing completed sequence")
	}
	if seq.State != StateCompleted {
		t.Fatalf("completed sequence changed state to %s", seq.State)
	}
}

func TestResume_RequiresPaused(t *testing.T) {
	seq := Sequence{State: StateActive}
	if err := seq.Resume(time.Now()); err == nil {
		t.Fatalf("expected error resuming active sequence")
	}
}

func TestStepEligibility(t *testing.T) {
	respondedAt := time.Now()

	cases := []struct {
		name     string
		lead     leads.Lead
		eligible bool
	}{
		{"reachable new lead", leads.Lead{Status: leads.StatusContacted, Email: "a@b.c"}, true},
		{"converted lead", leads.Lead{Status: leads.StatusConverted, Email: "a@b.c"}, false},
		{"lost lead", leads.Lead{Status: leads.StatusLost, Email: "a@b.c"}, false},
		{"lead replied", leads.Lead{Status: leads.StatusContacted, Email: "a@b.c", CustomerRespondedAt: &respondedAt}, false},
		{"answered by us, no reply yet", leads.Lead{Status: leads.StatusContacted, Email: "a@b.c", RespondedAt: &respondedAt}, true},
		{"no email", leads.Lead{Status: leads.StatusContacted}, false},
	}

	for _, tc := range cases {
		reason, eligible := stepEligibility(tc.lead)
		if eligible != tc.eligible {
			t.Fatalf("%s: expected eligible=%v (reason %q)", tc.name, tc.eligible, reason)
		}
		if !eligible && reason == "" {
			t.Fatalf("%s: ineligible lead needs a reason", tc.name)
		}
	}
}

func TestStepMessage_CoversAllTypesAndSteps(t *testing.T) {
	lead := leads.Lead{FirstName: "Ada", ServiceType: "corporate"}
	for _, sequenceType := range []string{TypeStandard, TypeHighValue, TypeCorporate} {
		offsets, ok := StepOffsets(sequenceType)
		if !ok {
			t.Fatalf("missing offsets for %s", sequenceType)
		}
		for step := 2; step <= len(offsets); step++ {
			subject, body := StepMessage(sequenceType, step, lead)
			if subject == "" || body == "" {
				t.Fatalf("%s step %d produced empty message", sequenceType, step)
			}
		}
	}
}
