package scoring

import (
	"math"
	"time"
)

// maxScore hard-caps the total regardless of the configured weight sum.
const maxScore = 100

// Input carries the scoring-relevant attributes of a lead. Now is passed
// explicitly so time-derived formulas stay deterministic.
type Input struct {
	FirstName        string
	LastName         string
	Email            string
	Phone            string
	Company          string
	ServiceType      string
	PassengerCount   int
	EstimatedValue   int
	DistanceFromBase int
	ServiceDate      *time.Time
	Now              time.Time
}

// FactorPoints is one line of the per-factor breakdown.
type FactorPoints struct {
	Factor string `json:"factor"`
	Points int    `json:"points"`
}

// Result is the outcome of a scoring pass.
type Result struct {
	Total     int            `json:"total"`
	Breakdown []FactorPoints `json:"breakdown"`
}

// Score evaluates every active factor against the input and returns the
// capped total with a per-factor breakdown. Inactive factors contribute
// nothing and do not appear in the breakdown.
func Score(input Input, factors []Factor) Result {
	result := Result{Breakdown: make([]FactorPoints, 0, len(factors))}

	sum := 0
	for _, factor := range factors {
		if !factor.Active {
			continue
		}
		points := factor.evaluate(input)
		sum += points
		result.Breakdown = append(result.Breakdown, FactorPoints{Factor: factor.Name, Points: points})
	}

	if sum > maxScore {
		sum = maxScore
	}
	result.Total = sum
	return result
}

// PriorityLevel derives the 5-tier priority from a score via the fixed
// threshold table.
func PriorityLevel(score int) int {
	switch {
	case score >= 80:
		return 5
	case score >= 60:
		return 4
	case score >= 40:
		return 3
	case score >= 20:
		return 2
	default:
		return 1
	}
}

// evaluate returns the points this factor awards for the input.
// Unmapped values and unmatched buckets score 0.
func (f Factor) evaluate(input Input) int {
	switch f.Method {
	case MethodExactMatch:
		return f.Rules.Values[input.stringAttribute(f.Attribute)]
	case MethodRange:
		return f.bucketPoints(input.numericAttribute(f.Attribute))
	case MethodFormula:
		value, ok := input.formulaValue(f.Rules.Selector)
		if !ok {
			return 0
		}
		return f.bucketPoints(value)
	case MethodBoolean:
		if input.booleanAttribute(f.Attribute) {
			return f.Rules.TruePoints
		}
		return f.Rules.FalsePoints
	default:
		return 0
	}
}

// bucketPoints finds the first bucket containing value. Malformed bucket
// specs are skipped; Validate rejects them before they reach here.
func (f Factor) bucketPoints(value int) int {
	for _, spec := range f.Rules.Buckets {
		b, err := parseBucket(spec)
		if err != nil {
			continue
		}
		if b.contains(value) {
			return b.points
		}
	}
	return 0
}

func (in Input) stringAttribute(attribute string) string {
	switch attribute {
	case AttrServiceType:
		return in.ServiceType
	default:
		return ""
	}
}

func (in Input) numericAttribute(attribute string) int {
	switch attribute {
	case AttrEstimatedValue:
		return in.EstimatedValue
	case AttrPassengerCount:
		return in.PassengerCount
	case AttrDistanceFromBase:
		return in.DistanceFromBase
	default:
		return 0
	}
}

func (in Input) booleanAttribute(attribute string) bool {
	switch attribute {
	case AttrCompanyProvided:
		return in.Company != ""
	default:
		return false
	}
}

// formulaValue computes the derived value for a formula selector.
// The second return is false when the input cannot feed the formula
// (e.g., no service date), in which case the factor scores 0.
func (in Input) formulaValue(selector string) (int, bool) {
	switch selector {
	case FormulaDaysUntilService:
		if in.ServiceDate == nil {
			return 0, false
		}
		days := int(math.Ceil(in.ServiceDate.Sub(in.Now).Hours() / 24))
		if days < 0 {
			days = 0
		}
		return days, true
	case FormulaContactCompleteness:
		count := 0
		for _, field := range []string{in.Email, in.Phone, in.FirstName, in.LastName, in.Company} {
			if field != "" {
				count++
			}
		}
		return count, true
	default:
		return 0, false
	}
}
