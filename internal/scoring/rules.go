// Package scoring implements the deterministic lead scoring engine.
// The engine is a pure function over lead attributes and a snapshot of
// active weighted factors; it performs no I/O.
package scoring

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Method identifies how a factor evaluates a lead.
type Method string

const (
	MethodExactMatch Method = "exact_match"
	MethodRange      Method = "range"
	MethodFormula    Method = "formula"
	MethodBoolean    Method = "boolean"
)

// Formula selectors form a closed set so configuration can be validated at
// load time rather than at evaluation time.
const (
	FormulaDaysUntilService    = "days_until_service"
	FormulaContactCompleteness = "contact_completeness"
)

// Attributes a factor may evaluate.
const (
	AttrServiceType      = "service_type"
	AttrEstimatedValue   = "estimated_value"
	AttrPassengerCount   = "passenger_count"
	AttrDistanceFromBase = "distance_from_base"
	AttrCompanyProvided  = "company_provided"
)

// BucketSpec is one entry of a numeric bucket table as stored in
// configuration: a range expression ("A-B", "N+" or exact "N") and the
// points awarded when the value falls inside it.
type BucketSpec struct {
	Range  string `json:"range"`
	Points int    `json:"points"`
}

// Rules is the tagged rule payload of a factor. Exactly one variant is
// populated, selected by the factor's Method.
type Rules struct {
	// exact_match: categorical value -> points
	Values map[string]int `json:"values,omitempty"`
	// range and formula: ordered buckets, first match wins
	Buckets []BucketSpec `json:"buckets,omitempty"`
	// formula: which derived computation feeds the buckets
	Selector string `json:"selector,omitempty"`
	// boolean: points for each outcome
	TruePoints  int `json:"true_points,omitempty"`
	FalsePoints int `json:"false_points,omitempty"`
}

// Factor is one weighted scoring rule. Read-only to the engine at
// evaluation time.
type Factor struct {
	ID        uuid.UUID
	Name      string
	Category  string
	Weight    int
	Method    Method
	Attribute string
	Rules     Rules
	Active    bool
}

// bucket is a parsed range expression. Max < 0 means open-ended ("N+").
type bucket struct {
	min    int
	max    int
	points int
}

func parseBucket(spec BucketSpec) (bucket, error) {
	expr := strings.TrimSpace(spec.Range)
	switch {
	case strings.HasSuffix(expr, "+"):
		min, err := strconv.Atoi(strings.TrimSuffix(expr, "+"))
		if err != nil {
			return bucket{}, fmt.Errorf("invalid open range %q", expr)
		}
		return bucket{min: min, max: -1, points: spec.Points}, nil
	case strings.Contains(expr, "-"):
		parts := strings.SplitN(expr, "-", 2)
		min, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
		max, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err1 != nil || err2 != nil || max < min {
			return bucket{}, fmt.Errorf("invalid closed range %q", expr)
		}
		return bucket{min: min, max: max, points: spec.Points}, nil
	default:
		exact, err := strconv.Atoi(expr)
		if err != nil {
			return bucket{}, fmt.Errorf("invalid exact range %q", expr)
		}
		return bucket{min: exact, max: exact, points: spec.Points}, nil
	}
}

func (b bucket) contains(value int) bool {
	if value < b.min {
		return false
	}
	return b.max < 0 || value <= b.max
}

// Validate checks the factor configuration so misconfiguration surfaces at
// load time instead of evaluation time.
func (f Factor) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("factor name is required")
	}
	if f.Weight < 0 || f.Weight > 100 {
		return fmt.Errorf("factor %s: weight %d outside [0,100]", f.Name, f.Weight)
	}

	switch f.Method {
	case MethodExactMatch:
		if len(f.Rules.Values) == 0 {
			return fmt.Errorf("factor %s: exact_match requires a value table", f.Name)
		}
		for value, points := range f.Rules.Values {
			if points > f.Weight {
				return fmt.Errorf("factor %s: value %q awards %d, above weight %d", f.Name, value, points, f.Weight)
			}
		}
	case MethodRange:
		if err := f.validateBuckets(); err != nil {
			return err
		}
	case MethodFormula:
		switch f.Rules.Selector {
		case FormulaDaysUntilService, FormulaContactCompleteness:
		default:
			return fmt.Errorf("factor %s: unknown formula selector %q", f.Name, f.Rules.Selector)
		}
		if err := f.validateBuckets(); err != nil {
			return err
		}
	case MethodBoolean:
		if f.Rules.TruePoints > f.Weight || f.Rules.FalsePoints > f.Weight {
			return fmt.Errorf("factor %s: boolean points above weight %d", f.Name, f.Weight)
		}
	default:
		return fmt.Errorf("factor %s: unknown method %q", f.Name, f.Method)
	}

	return nil
}

func (f Factor) validateBuckets() error {
	if len(f.Rules.Buckets) == 0 {
		return fmt.Errorf("factor %s: bucket table is required", f.Name)
	}
	for _, spec := range f.Rules.Buckets {
		b, err := parseBucket(spec)
		if err != nil {
			return fmt.Errorf("factor %s: %w", f.Name, err)
		}
		if b.points > f.Weight {
			return fmt.Errorf("factor %s: bucket %q awards %d, above weight %d", f.Name, spec.Range, b.points, f.Weight)
		}
	}
	return nil
}

// DecodeRules parses the stored JSONB rule payload.
func DecodeRules(raw []byte) (Rules, error) {
	var rules Rules
	if len(raw) == 0 {
		return rules, nil
	}
	if err := json.Unmarshal(raw, &rules); err != nil {
		return Rules{}, fmt.Errorf("decode rules: %w", err)
	}
	return rules, nil
}
