package dispatch

import "time"

// Status is the outcome a handler reports back to the dispatcher.
// Rescheduling is an explicit result variant, never a string-encoded error.
type Status string

const (
	StatusSent        Status = "sent"
	StatusRescheduled Status = "rescheduled"
	StatusSkipped     Status = "skipped"
	StatusFailed      Status = "failed"
)

// Result tells the dispatcher what to do after a handler returns.
type Result struct {
	Status Status
	Delay  time.Duration // rescheduled: when to run again
	Reason string        // skipped: why the job was a no-op
}

// Sent reports successful completion.
func Sent() Result {
	return Result{Status: StatusSent}
}

// Reschedule requests a fresh run of the same job after delay.
func Reschedule(delay time.Duration) Result {
	return Result{Status: StatusRescheduled, Delay: delay}
}

// Skip reports a deliberate no-op (e.g., the lead closed in the meantime).
// Skips complete the job; they are not failures.
func Skip(reason string) Result {
	return Result{Status: StatusSkipped, Reason: reason}
}
