// Package analytics records pipeline events and aggregates them into daily
// rollups for reporting.
package analytics

import (
	"time"

	"github.com/google/uuid"
)

// Event types recorded by the pipeline.
const (
	EventLeadCreated      = "lead_created"
	EventResponseSent     = "response_sent"
	EventEscalationRaised = "escalation_raised"
)

// Event is one recorded pipeline occurrence.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	EventType  string         `json:"eventType"`
	LeadID     *uuid.UUID     `json:"leadId,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// DailyRollup is one calendar day's aggregate.
type DailyRollup struct {
	Day           time.Time `json:"day"`
	LeadsCreated  int       `json:"leadsCreated"`
	ResponsesSent int       `json:"responsesSent"`
	Escalations   int       `json:"escalations"`
	AvgScore      float64   `json:"avgScore"`
	SLAAttainment float64   `json:"slaAttainment"`
	ComputedAt    time.Time `json:"computedAt"`
}
