package sequence

import (
	"fmt"
	"strings"

	"leadflow_backend/internal/leads"
)

// StepMessage renders the subject and body for a follow-up step.
func StepMessage(sequenceType string, step int, lead leads.Lead) (string, string) {
	name := strings.TrimSpace(lead.FirstName)
	if name == "" {
		name = "there"
	}

	switch sequenceType {
	case TypeCorporate:
		return fmt.Sprintf("Your corporate travel quote (follow-up %d)", step-1),
			fmt.Sprintf("Hi %s,\n\nFollowing up on the ground transportation inquiry for %s. "+
				"Our corporate account team can set up billing, preferred vehicles and a dedicated dispatcher. "+
				"Reply here or call us and we'll finalize the details.\n\nThe LeadFlow Charters team",
				name, orDefault(lead.Company, "your company"))
	case TypeHighValue:
		return fmt.Sprintf("Still holding availability for your %s trip", humanServiceType(lead.ServiceType)),
			fmt.Sprintf("Hi %s,\n\nWe still have vehicles available for your %s request and would love to lock in "+
				"your preferred option before the calendar fills. A quick reply is all we need to hold it.\n\n"+
				"The LeadFlow Charters team",
				name, humanServiceType(lead.ServiceType))
	default:
		return "Checking in on your transportation quote",
			fmt.Sprintf("Hi %s,\n\nJust checking in on your %s inquiry. If the plans are still on, "+
				"we can confirm pricing and availability the same day.\n\nThe LeadFlow Charters team",
				name, humanServiceType(lead.ServiceType))
	}
}

func humanServiceType(serviceType string) string {
	switch serviceType {
	case leads.ServiceCorporate:
		return "corporate travel"
	case leads.ServiceWedding:
		return "wedding transportation"
	case leads.ServiceAirportTransfer:
		return "airport transfer"
	case leads.ServiceHourly:
		return "hourly charter"
	default:
		return "point-to-point trip"
	}
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
