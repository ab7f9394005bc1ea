package webhookin

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"leadflow_backend/internal/leads"
	"leadflow_backend/platform/apperr"

	"github.com/google/uuid"
)

// FormPayload is the wire shape of a website form submission.
type FormPayload struct {
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Company          string `json:"company"`
	ServiceType      string `json:"serviceType"`
	PassengerCount   int    `json:"passengerCount"`
	EstimatedValue   int    `json:"estimatedValue"`
	DistanceFromBase int    `json:"distanceFromBase"`
	ServiceDate      string `json:"serviceDate"`
	Source           string `json:"source"`
}

// ExtractForm turns a form submission into an intake request.
func ExtractForm(payload []byte) (leads.IntakeRequest, error) {
	var form FormPayload
	if err := json.Unmarshal(payload, &form); err != nil {
		return leads.IntakeRequest{}, apperr.BadRequest("malformed form payload")
	}

	if form.Email == "" && form.Phone == "" {
		return leads.IntakeRequest{}, apperr.Validation("form submission needs an email or phone")
	}

	req := leads.IntakeRequest{
		FirstName:        form.FirstName,
		LastName:         form.LastName,
		Email:            form.Email,
		Phone:            form.Phone,
		Company:          form.Company,
		ServiceType:      form.ServiceType,
		PassengerCount:   form.PassengerCount,
		EstimatedValue:   form.EstimatedValue,
		DistanceFromBase: form.DistanceFromBase,
		Source:           form.Source,
	}
	if req.Source == "" {
		req.Source = "website_form"
	}

	if form.ServiceDate != "" {
		date, err := parseServiceDate(form.ServiceDate)
		if err != nil {
			return leads.IntakeRequest{}, apperr.Validation(fmt.Sprintf("bad service date: %v", err))
		}
		req.ServiceDate = &date
	}
	return req, nil
}

func parseServiceDate(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if date, err := time.Parse(layout, raw); err == nil {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// Engagement events accepted from the email provider.
var engagementEvents = map[string]bool{
	"opened":       true,
	"clicked":      true,
	"replied":      true,
	"bounced":      true,
	"unsubscribed": true,
}

// EngagementPayload is the wire shape of an email engagement event.
type EngagementPayload struct {
	Event string `json:"event"`
	Email string `json:"email"`
}

// ExtractEngagement validates an engagement event.
func ExtractEngagement(payload []byte) (EngagementPayload, error) {
	var event EngagementPayload
	if err := json.Unmarshal(payload, &event); err != nil {
		return EngagementPayload{}, apperr.BadRequest("malformed engagement payload")
	}

	event.Event = strings.ToLower(strings.TrimSpace(event.Event))
	event.Email = strings.ToLower(strings.TrimSpace(event.Email))
	if !engagementEvents[event.Event] {
		return EngagementPayload{}, apperr.Validation(fmt.Sprintf("unknown engagement event %q", event.Event))
	}
	if event.Email == "" {
		return EngagementPayload{}, apperr.Validation("engagement event needs an email")
	}
	return event, nil
}

// CRMUpdatePayload is the wire shape of a CRM status push.
type CRMUpdatePayload struct {
	LeadID string `json:"leadId"`
	Status string `json:"status"`
}

// ExtractCRMUpdate validates a CRM status update.
func ExtractCRMUpdate(payload []byte) (uuid.UUID, string, error) {
	var update CRMUpdatePayload
	if err := json.Unmarshal(payload, &update); err != nil {
		return uuid.Nil, "", apperr.BadRequest("malformed crm payload")
	}

	leadID, err := uuid.Parse(update.LeadID)
	if err != nil {
		return uuid.Nil, "", apperr.Validation("crm update needs a valid lead id")
	}

	status := strings.ToLower(strings.TrimSpace(update.Status))
	if !leads.Status(status).Valid() {
		return uuid.Nil, "", apperr.Validation(fmt.Sprintf("unknown lead status %q", status))
	}
	return leadID, status, nil
}
