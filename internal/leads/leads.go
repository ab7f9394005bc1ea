// Package leads provides the lead lifecycle bounded context: intake with
// duplicate linking, scoring, status transitions and interaction history.
package leads

import (
	"time"

	"leadflow_backend/internal/scoring"

	"github.com/google/uuid"
)

// Status is the lead lifecycle state.
type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusQualified Status = "qualified"
	StatusConverted Status = "converted"
	StatusLost      Status = "lost"
)

// Service types offered by the charter operation.
const (
	ServiceCorporate       = "corporate"
	ServiceWedding         = "wedding"
	ServiceAirportTransfer = "airport_transfer"
	ServiceHourly          = "hourly"
	ServicePointToPoint    = "point_to_point"
)

// transitions lists the allowed forward moves per state. Terminal states
// have no forward moves; reopening a lost lead goes through Reopen.
var transitions = map[Status][]Status{
	StatusNew:       {StatusContacted, StatusQualified, StatusLost},
	StatusContacted: {StatusQualified, StatusConverted, StatusLost},
	StatusQualified: {StatusConverted, StatusLost},
	StatusConverted: {},
	StatusLost:      {},
}

// Valid reports whether s names a known lifecycle state.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is a legal forward
// transition.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Closed reports whether the lead has reached a terminal state.
func (s Status) Closed() bool {
	return s == StatusConverted || s == StatusLost
}

// Lead is one inbound booking inquiry.
type Lead struct {
	ID               uuid.UUID  `json:"id"`
	FirstName        string     `json:"firstName"`
	LastName         string     `json:"lastName"`
	Email            string     `json:"email"`
	Phone            string     `json:"phone"`
	Company          string     `json:"company"`
	ServiceType      string     `json:"serviceType"`
	PassengerCount   int        `json:"passengerCount"`
	EstimatedValue   int        `json:"estimatedValue"`
	DistanceFromBase int        `json:"distanceFromBase"`
	ServiceDate      *time.Time `json:"serviceDate,omitempty"`
	Source           string     `json:"source"`
	Status           Status     `json:"status"`
	Score            int        `json:"score"`
	PriorityLevel    int        `json:"priorityLevel"`
	EscalationLevel  int        `json:"escalationLevel"`
	// RespondedAt stamps our first answer to the lead and stops the
	// response clock; CustomerRespondedAt stamps the lead's first reply
	// back to us and stops the drip sequence.
	RespondedAt         *time.Time `json:"respondedAt,omitempty"`
	CustomerRespondedAt *time.Time `json:"customerRespondedAt,omitempty"`
	DuplicateOf         *uuid.UUID `json:"duplicateOf,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// ScoringInput projects the lead onto the scoring engine's input.
func (l Lead) ScoringInput(now time.Time) scoring.Input {
	return scoring.Input{
		FirstName:        l.FirstName,
		LastName:         l.LastName,
		Email:            l.Email,
		Phone:            l.Phone,
		Company:          l.Company,
		ServiceType:      l.ServiceType,
		PassengerCount:   l.PassengerCount,
		EstimatedValue:   l.EstimatedValue,
		DistanceFromBase: l.DistanceFromBase,
		ServiceDate:      l.ServiceDate,
		Now:              now,
	}
}

// Interaction kinds. Inbound kinds count as a lead response.
const (
	InteractionCall       = "call"
	InteractionEmailReply = "email_reply"
	InteractionSMSReply   = "sms_reply"
	InteractionNote       = "note"
	InteractionOutbound   = "outbound"
)

// Interaction is one touchpoint on a lead's timeline.
type Interaction struct {
	ID         uuid.UUID `json:"id"`
	LeadID     uuid.UUID `json:"leadId"`
	Kind       string    `json:"kind"`
	Channel    string    `json:"channel"`
	Summary    string    `json:"summary"`
	OccurredAt time.Time `json:"occurredAt"`
}

// IsResponse reports whether an interaction kind represents the lead
// getting back to us, which stops the response-time clock.
func IsResponse(kind string) bool {
	switch kind {
	case InteractionCall, InteractionEmailReply, InteractionSMSReply:
		return true
	default:
		return false
	}
}
