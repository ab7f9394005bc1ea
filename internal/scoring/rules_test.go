package scoring

import "testing"

func TestParseBucket_Expressions(t *testing.T) {
	cases := []struct {
		expr     string
		value    int
		contains bool
	}{
		{"0-499", 0, true},
		{"0-499", 499, true},
		{"0-499", 500, false},
		{"2500+", 2500, true},
		{"2500+", 1000000, true},
		{"2500+", 2499, false},
		{"8", 8, true},
		{"8", 7, false},
	}

	for _, tc := range cases {
		b, err := parseBucket(BucketSpec{Range: tc.expr, Points: 1})
		if err != nil {
			t.Fatalf("parse %q: %v", tc.expr, err)
		}
		if got := b.contains(tc.value); got != tc.contains {
			t.Fatalf("%q contains %d: expected %v, got %v", tc.expr, tc.value, tc.contains, got)
		}
	}
}

func TestParseBucket_Invalid(t *testing.T) {
	for _, expr := range []string{"abc", "10-5", "x+", "1-b"} {
		if _, err := parseBucket(BucketSpec{Range: expr}); err == nil {
			t.Fatalf("expected parse error for %q", expr)
		}
	}
}

func TestFactorValidate_WeightBounds(t *testing.T) {
	f := Factor{
		Name:   "oversized",
		Weight: 101,
		Method: MethodBoolean,
		Rules:  Rules{TruePoints: 5},
	}
	if err := f.Validate(); err == nil {
		t.Fatalf("expected weight validation error")
	}
}

func TestFactorValidate_PointsAboveWeight(t *testing.T) {
	f := Factor{
		Name:      "greedy",
		Weight:    10,
		Method:    MethodExactMatch,
		Attribute: AttrServiceType,
		Rules:     Rules{Values: map[string]int{"corporate": 25}},
	}
	if err := f.Validate(); err == nil {
		t.Fatalf("expected error for value points above weight")
	}

	f = Factor{
		Name:   "greedy_range",
		Weight: 10,
		Method: MethodRange,
		Rules:  Rules{Buckets: []BucketSpec{{Range: "0-5", Points: 20}}},
	}
	if err := f.Validate(); err == nil {
		t.Fatalf("expected error for bucket points above weight")
	}
}

func TestFactorValidate_UnknownSelector(t *testing.T) {
	f := Factor{
		Name:   "mystery",
		Weight: 10,
		Method: MethodFormula,
		Rules: Rules{
			Selector: "phase_of_moon",
			Buckets:  []BucketSpec{{Range: "0-5", Points: 5}},
		},
	}
	if err := f.Validate(); err == nil {
		t.Fatalf("expected error for unknown formula selector")
	}
}

func TestFactorValidate_UnknownMethod(t *testing.T) {
	f := Factor{Name: "weird", Weight: 10, Method: Method("vibes")}
	if err := f.Validate(); err == nil {
		t.Fatalf("expected error for unknown method")
	}
}

func TestFactorValidate_EmptyRuleTables(t *testing.T) {
	f := Factor{Name: "empty_values", Weight: 10, Method: MethodExactMatch}
	if err := f.Validate(); err == nil {
		t.Fatalf("expected error for exact_match without values")
	}

	f = Factor{Name: "empty_buckets", Weight: 10, Method: MethodRange}
	if err := f.Validate(); err == nil {
		t.Fatalf("expected error for range without buckets")
	}
}

func TestDecodeRules_RoundTrip(t *testing.T) {
	rules, err := DecodeRules([]byte(`{"values":{"corporate":25},"selector":"days_until_service"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rules.Values["corporate"] != 25 {
		t.Fatalf("expected corporate=25, got %d", rules.Values["corporate"])
	}
	if rules.Selector != FormulaDaysUntilService {
		t.Fatalf("expected selector %q, got %q", FormulaDaysUntilService, rules.Selector)
	}

	if _, err := DecodeRules([]byte(`{not json`)); err == nil {
		t.Fatalf("expected decode error for malformed payload")
	}
}
