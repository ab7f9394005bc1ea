// Package response sends the instant first-touch reply to new leads and
// starts their follow-up sequence.
package response

import (
	"fmt"
	"strings"

	"leadflow_backend/internal/leads"
)

// FirstTouchMessage renders the instant-response email for a lead.
func FirstTouchMessage(lead leads.Lead) (string, string) {
	name := strings.TrimSpace(lead.FirstName)
	if name == "" {
		name = "there"
	}

	switch lead.ServiceType {
	case leads.ServiceCorporate:
		return "We received your corporate travel inquiry",
			fmt.Sprintf("Hi %s,\n\nThanks for reaching out about corporate ground transportation%s. "+
				"A dedicated account coordinator is reviewing your request right now and will call you shortly "+
				"with availability and corporate rates.\n\nThe LeadFlow Charters team",
				name, forCompany(lead.Company))
	case leads.ServiceWedding:
		return "Your wedding transportation inquiry",
			fmt.Sprintf("Hi %s,\n\nCongratulations! We received your wedding transportation request and our "+
				"events coordinator is checking fleet availability for your date. Expect a call within the hour "+
				"with options and pricing.\n\nThe LeadFlow Charters team", name)
	case leads.ServiceAirportTransfer:
		return "Your airport transfer quote is on its way",
			fmt.Sprintf("Hi %s,\n\nWe got your airport transfer request. A dispatcher is confirming vehicle "+
				"availability and will send your quote shortly. For time-sensitive pickups, call us directly and "+
				"we'll book you on the spot.\n\nThe LeadFlow Charters team", name)
	default:
		return "We received your transportation inquiry",
			fmt.Sprintf("Hi %s,\n\nThanks for your inquiry. One of our coordinators is putting together a quote "+
				"for your trip and will be in touch shortly.\n\nThe LeadFlow Charters team", name)
	}
}

// FirstTouchSMS renders the short-form fallback for leads without email.
func FirstTouchSMS(lead leads.Lead) string {
	name := strings.TrimSpace(lead.FirstName)
	if name == "" {
		return "Thanks for your transportation inquiry! A LeadFlow Charters coordinator is on it and will reach out shortly."
	}
	return fmt.Sprintf("Hi %s, thanks for your transportation inquiry! A LeadFlow Charters coordinator is on it and will reach out shortly.", name)
}

func forCompany(company string) string {
	if strings.TrimSpace(company) == "" {
		return ""
	}
	return " for " + company
}
