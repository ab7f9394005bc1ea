// Package sequence provides automated follow-up sequences: a small state
// machine over a per-lead drip schedule, swept periodically for due steps.
package sequence

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// State is the sequence lifecycle state.
type State string

const (
	StateActive    State = "active"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
)

// Sequence types.
const (
	TypeStandard  = "standard"
	TypeHighValue = "high_value"
	TypeCorporate = "corporate"
)

// stepOffsets maps each sequence type to the send offsets of its steps,
// measured from sequence creation. Step 1 is the first touch sent at
// creation time; later entries schedule the follow-ups.
var stepOffsets = map[string][]time.Duration{
	TypeStandard:  {0, 3 * day, 7 * day, 14 * day},
	TypeHighValue: {0, 1 * day, 3 * day, 7 * day, 14 * day},
	TypeCorporate: {0, 2 * day, 5 * day, 10 * day},
}

const day = 24 * time.Hour

// StepOffsets returns the schedule for a sequence type.
func StepOffsets(sequenceType string) ([]time.Duration, bool) {
	offsets, ok := stepOffsets[sequenceType]
	return offsets, ok
}

// ChooseType picks the sequence flavor for a lead: high scorers get the
// denser cadence, corporate accounts get the corporate track.
func ChooseType(score int, serviceType string) string {
	if score >= 80 {
		return TypeHighValue
	}
	if serviceType == "corporate" {
		return TypeCorporate
	}
	return TypeStandard
}

// Sequence is one lead's follow-up schedule.
type Sequence struct {
	ID             uuid.UUID  `json:"id"`
	LeadID         uuid.UUID  `json:"leadId"`
	Type           string     `json:"type"`
	CurrentStep    int        `json:"currentStep"`
	TotalSteps     int        `json:"totalSteps"`
	NextRunAt      *time.Time `json:"nextRunAt,omitempty"`
	State          State      `json:"state"`
	SentCount      int        `json:"sentCount"`
	OpenedCount    int        `json:"openedCount"`
	RespondedCount int        `json:"respondedCount"`
	PauseReason    *string    `json:"pauseReason,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// New builds an active sequence for a lead. The first touch counts as
// already sent (step 1); the next run lands on step 2's offset.
func New(leadID uuid.UUID, sequenceType string, now time.Time) (Sequence, error) {
	offsets, ok := StepOffsets(sequenceType)
	if !ok {
		return Sequence{}, fmt.Errorf("unknown sequence type %q", sequenceType)
	}

	seq := Sequence{
		LeadID:      leadID,
		Type:        sequenceType,
		CurrentStep: 1,
		TotalSteps:  len(offsets),
		State:       StateActive,
		SentCount:   1,
		CreatedAt:   now,
	}

	if len(offsets) > 1 {
		next := now.Add(offsets[1])
		seq.NextRunAt = &next
	} else {
		seq.State = StateCompleted
	}
	return seq, nil
}

// Advance records a sent step and schedules the next one. On the final
// step the sequence completes and next_run_at clears; an active sequence
// always has a next run time.
func (s *Sequence) Advance(now time.Time) error {
	if s.State != StateActive {
		return fmt.Errorf("cannot advance %s sequence", s.State)
	}

	offsets, ok := StepOffsets(s.Type)
	if !ok {
		return fmt.Errorf("unknown sequence type %q", s.Type)
	}

	s.CurrentStep++
	s.SentCount++

	if s.CurrentStep >= s.TotalSteps {
		s.CurrentStep = s.TotalSteps
		s.State = StateCompleted
		s.NextRunAt = nil
		return nil
	}

	next := s.CreatedAt.Add(offsets[s.CurrentStep])
	if next.Before(now) {
		next = now.Add(time.Minute)
	}
	s.NextRunAt = &next
	return nil
}

// Pause stops the sequence, recording why. Completed sequences stay
// completed.
func (s *Sequence) Pause(reason string) error {
	if s.State == StateCompleted {
		return fmt.Errorf("cannot pause completed sequence")
	}
	s.State = StatePaused
	s.NextRunAt = nil
	s.PauseReason = &reason
	return nil
}

// Resume reactivates a paused sequence, scheduling the pending step
// shortly after now rather than back-filling missed offsets.
func (s *Sequence) Resume(now time.Time) error {
	if s.State != StatePaused {
		return fmt.Errorf("cannot resume %s sequence", s.State)
	}
	s.State = StateActive
	s.PauseReason = nil
	next := now.Add(time.Minute)
	s.NextRunAt = &next
	return nil
}
