// Package sla monitors first-response times: trailing-window metrics and
// escalation of leads left unanswered past the response thresholds.
package sla

import (
	"time"

	"github.com/google/uuid"
)

// Escalation levels stored on the lead. The column only ever moves up,
// which is what makes each threshold crossing fire exactly once.
const (
	LevelNone     = 0
	LevelUrgent   = 1
	LevelCritical = 2
)

// SeverityName maps an escalation level to its wire name.
func SeverityName(level int) string {
	switch level {
	case LevelUrgent:
		return "urgent"
	case LevelCritical:
		return "critical"
	default:
		return "none"
	}
}

// SeverityFor returns the escalation level an unanswered lead of the given
// age should be at.
func SeverityFor(age, responseThreshold, criticalThreshold time.Duration) int {
	switch {
	case age >= criticalThreshold:
		return LevelCritical
	case age >= responseThreshold:
		return LevelUrgent
	default:
		return LevelNone
	}
}

// Metrics is one trailing-window measurement of response performance.
type Metrics struct {
	ID              uuid.UUID `json:"id"`
	WindowStart     time.Time `json:"windowStart"`
	WindowEnd       time.Time `json:"windowEnd"`
	LeadCount       int       `json:"leadCount"`
	RespondedCount  int       `json:"respondedCount"`
	AvgResponseSecs float64   `json:"avgResponseSecs"`
	WithinThreshold float64   `json:"withinThreshold"`
	ComputedAt      time.Time `json:"computedAt"`
}
