package scoring

import (
	"testing"
	"time"
)

func TestScore_HotCorporateLead_CapsAt100(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	serviceDate := now.Add(36 * time.Hour)

	input := Input{
		FirstName:        "Dana",
		LastName:         "Veldkamp",
		Email:            "dana@bigcorp.example",
		Phone:            "+14155550123",
		Company:          "BigCorp",
		ServiceType:      "corporate",
		PassengerCount:   12,
		EstimatedValue:   3000,
		DistanceFromBase: 5,
		ServiceDate:      &serviceDate,
		Now:              now,
	}

	result := Score(input, DefaultFactors())

	// Raw points: 10+40+25+15+15+15+10 = 130, capped.
	if result.Total != 100 {
		t.Fatalf("expected capped total 100, got %d", result.Total)
	}
	if PriorityLevel(result.Total) != 5 {
		t.Fatalf("expected priority 5, got %d", PriorityLevel(result.Total))
	}
	if len(result.Breakdown) != len(DefaultFactors()) {
		t.Fatalf("expected %d breakdown lines, got %d", len(DefaultFactors()), len(result.Breakdown))
	}
}

func TestScore_LowValuePointToPoint(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	input := Input{
		FirstName:        "Sam",
		Email:            "sam@example.com",
		Phone:            "+14155550199",
		ServiceType:      "point_to_point",
		PassengerCount:   2,
		EstimatedValue:   300,
		DistanceFromBase: 50,
		Now:              now,
	}

	result := Score(input, DefaultFactors())

	// No company (0), value 300 (10), service (5), proximity 50 (5),
	// group 2 (5), no service date so urgency scores 0, contact 3 fields (5).
	if result.Total != 30 {
		t.Fatalf("expected total 30, got %d", result.Total)
	}
	if PriorityLevel(result.Total) != 2 {
		t.Fatalf("expected priority 2, got %d", PriorityLevel(result.Total))
	}
}

func TestScore_Deterministic(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	serviceDate := now.Add(5 * 24 * time.Hour)

	input := Input{
		Email:          "repeat@example.com",
		ServiceType:    "wedding",
		PassengerCount: 6,
		EstimatedValue: 1500,
		ServiceDate:    &serviceDate,
		Now:            now,
	}

	first := Score(input, DefaultFactors())
	second := Score(input, DefaultFactors())

	if first.Total != second.Total {
		t.Fatalf("expected identical totals, got %d and %d", first.Total, second.Total)
	}
	for i := range first.Breakdown {
		if first.Breakdown[i] != second.Breakdown[i] {
			t.Fatalf("breakdown line %d differs: %+v vs %+v", i, first.Breakdown[i], second.Breakdown[i])
		}
	}
}

func TestScore_InactiveFactorContributesNothing(t *testing.T) {
	factors := []Factor{
		{
			Name:      "service_type",
			Weight:    25,
			Method:    MethodExactMatch,
			Attribute: AttrServiceType,
			Rules:     Rules{Values: map[string]int{"corporate": 25}},
			Active:    true,
		},
		{
			Name:      "company_provided",
			Weight:    10,
			Method:    MethodBoolean,
			Attribute: AttrCompanyProvided,
			Rules:     Rules{TruePoints: 10},
			Active:    false,
		},
	}

	result := Score(Input{ServiceType: "corporate", Company: "Acme"}, factors)

	if result.Total != 25 {
		t.Fatalf("expected 25 from the active factor only, got %d", result.Total)
	}
	if len(result.Breakdown) != 1 {
		t.Fatalf("expected 1 breakdown line, got %d", len(result.Breakdown))
	}
}

func TestScore_UnmappedValueScoresZero(t *testing.T) {
	factors := []Factor{
		{
			Name:      "service_type",
			Weight:    25,
			Method:    MethodExactMatch,
			Attribute: AttrServiceType,
			Rules:     Rules{Values: map[string]int{"corporate": 25}},
			Active:    true,
		},
	}

	result := Score(Input{ServiceType: "hot_air_balloon"}, factors)
	if result.Total != 0 {
		t.Fatalf("expected 0 for unmapped service type, got %d", result.Total)
	}
}

func TestPriorityLevel_Thresholds(t *testing.T) {
	cases := []struct {
		score int
		want  int
	}{
		{0, 1}, {19, 1}, {20, 2}, {39, 2}, {40, 3}, {59, 3}, {60, 4}, {79, 4}, {80, 5}, {100, 5},
	}
	for _, tc := range cases {
		if got := PriorityLevel(tc.score); got != tc.want {
			t.Fatalf("score %d: expected priority %d, got %d", tc.score, tc.want, got)
		}
	}
}

func TestFormulaDaysUntilService_PastDateClampsToZero(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	past := now.Add(-48 * time.Hour)

	input := Input{ServiceDate: &past, Now: now}
	days, ok := input.formulaValue(FormulaDaysUntilService)
	if !ok {
		t.Fatalf("expected formula to evaluate")
	}
	if days != 0 {
		t.Fatalf("expected past service date to clamp to 0 days, got %d", days)
	}
}

func TestDefaultFactors_AllValid(t *testing.T) {
	for _, f := range DefaultFactors() {
		if err := f.Validate(); err != nil {
			t.Fatalf("default factor %s failed validation: %v", f.Name, err)
		}
	}
}
