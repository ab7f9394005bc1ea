package leads

import "testing"

func TestStatusTransitions_ForwardOnly(t *testing.T) {
	allowed := []struct {
		from, to Status
	}{
		{StatusNew, StatusContacted},
		{StatusNew, StatusQualified},
		{StatusNew, StatusLost},
		{StatusContacted, StatusQualified},
		{StatusContacted, StatusConverted},
		{StatusContacted, StatusLost},
		{StatusQualified, StatusConverted},
		{StatusQualified, StatusLost},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransitionTo(tc.to) {
			t.Fatalf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	forbidden := []struct {
		from, to Status
	}{
		{StatusContacted, StatusNew},
		{StatusQualified, StatusContacted},
		{StatusConverted, StatusLost},
		{StatusLost, StatusNew},
		{StatusLost, StatusContacted},
		{StatusNew, StatusConverted},
	}
	for _, tc := range forbidden {
		if tc.from.CanTransitionTo(tc.to) {
			t.Fatalf("expected %s -> %s to be forbidden", tc.from, tc.to)
		}
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusNew, StatusContacted, StatusQualified, StatusConverted, StatusLost} {
		if !s.Valid() {
			t.Fatalf("expected %s to be valid", s)
		}
	}
	if Status("archived").Valid() {
		t.Fatalf("expected archived to be invalid")
	}
}

func TestStatusClosed(t *testing.T) {
	if !StatusConverted.Closed() || !StatusLost.Closed() {
		t.Fatalf("expected converted and lost to be terminal")
	}
	if StatusNew.Closed() || StatusContacted.Closed() || StatusQualified.Closed() {
		t.Fatalf("expected open states not to be terminal")
	}
}

func TestIsResponse(t *testing.T) {
	for _, kind := range []string{InteractionCall, InteractionEmailReply, InteractionSMSReply} {
		if !IsResponse(kind) {
			t.Fatalf("expected %s to count as a response", kind)
		}
	}
	for _, kind := range []string{InteractionNote, InteractionOutbound, "unknown"} {
		if IsResponse(kind) {
			t.Fatalf("expected %s not to count as a response", kind)
		}
	}
}
