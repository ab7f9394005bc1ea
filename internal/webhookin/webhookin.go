// Package webhookin ingests inbound webhooks through a write-ahead event
// log: every event is stored before processing, failed events replay in
// arrival order until a bounded retry budget runs out.
package webhookin

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Known webhook sources.
const (
	SourceForm       = "form"
	SourceEngagement = "engagement"
	SourceCRM        = "crm"
)

// Event is one entry in the write-ahead webhook log.
type Event struct {
	ID            uuid.UUID       `json:"id"`
	Source        string          `json:"source"`
	EventType     string          `json:"eventType"`
	Payload       json.RawMessage `json:"payload"`
	Processed     bool            `json:"processed"`
	RetryCount    int             `json:"retryCount"`
	LastError     *string         `json:"lastError,omitempty"`
	LeadID        *uuid.UUID      `json:"leadId,omitempty"`
	InteractionID *uuid.UUID      `json:"interactionId,omitempty"`
	ReceivedAt    time.Time       `json:"receivedAt"`
	ProcessedAt   *time.Time      `json:"processedAt,omitempty"`
}
