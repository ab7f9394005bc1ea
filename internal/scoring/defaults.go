package scoring

// DefaultFactors returns the built-in scoring model for charter
// transportation inquiries. The seed migration inserts the same values;
// this copy backs tests and the bootstrap path for empty factor tables.
func DefaultFactors() []Factor {
	return []Factor{
		{
			Name:      "company_provided",
			Category:  "firmographic",
			Weight:    10,
			Method:    MethodBoolean,
			Attribute: AttrCompanyProvided,
			Rules:     Rules{TruePoints: 10, FalsePoints: 0},
			Active:    true,
		},
		{
			Name:      "estimated_value",
			Category:  "value",
			Weight:    40,
			Method:    MethodRange,
			Attribute: AttrEstimatedValue,
			Rules: Rules{Buckets: []BucketSpec{
				{Range: "0-499", Points: 10},
				{Range: "500-999", Points: 20},
				{Range: "1000-2499", Points: 30},
				{Range: "2500+", Points: 40},
			}},
			Active: true,
		},
		{
			Name:      "service_type",
			Category:  "service",
			Weight:    25,
			Method:    MethodExactMatch,
			Attribute: AttrServiceType,
			Rules: Rules{Values: map[string]int{
				"corporate":        25,
				"wedding":          20,
				"airport_transfer": 15,
				"hourly":           10,
				"point_to_point":   5,
			}},
			Active: true,
		},
		{
			Name:      "proximity",
			Category:  "logistics",
			Weight:    15,
			Method:    MethodRange,
			Attribute: AttrDistanceFromBase,
			Rules: Rules{Buckets: []BucketSpec{
				{Range: "0-14", Points: 15},
				{Range: "15-39", Points: 10},
				{Range: "40-74", Points: 5},
				{Range: "75+", Points: 0},
			}},
			Active: true,
		},
		{
			Name:      "group_size",
			Category:  "value",
			Weight:    15,
			Method:    MethodRange,
			Attribute: AttrPassengerCount,
			Rules: Rules{Buckets: []BucketSpec{
				{Range: "1-3", Points: 5},
				{Range: "4-7", Points: 10},
				{Range: "8+", Points: 15},
			}},
			Active: true,
		},
		{
			Name:     "urgency",
			Category: "behavioral",
			Weight:   15,
			Method:   MethodFormula,
			Rules: Rules{
				Selector: FormulaDaysUntilService,
				Buckets: []BucketSpec{
					{Range: "0-2", Points: 15},
					{Range: "3-7", Points: 10},
					{Range: "8-30", Points: 5},
					{Range: "31+", Points: 0},
				},
			},
			Active: true,
		},
		{
			Name:     "contact_completeness",
			Category: "behavioral",
			Weight:   10,
			Method:   MethodFormula,
			Rules: Rules{
				Selector: FormulaContactCompleteness,
				Buckets: []BucketSpec{
					{Range: "0-1", Points: 0},
					{Range: "2-3", Points: 5},
					{Range: "4-5", Points: 10},
				},
			},
			Active: true,
		},
	}
}
