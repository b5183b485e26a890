package dataprocessing

import (
	"fmt"
	"strings"

	"co2dash/pkg/contracts/domain"
)

// AggregationPolicy decides what happens when a code appears more than once in a year
type AggregationPolicy string

const (
	// AggregateSum adds the measures of every record sharing a code and year
	AggregateSum AggregationPolicy = "sum"
	// AggregateStrict rejects a code appearing twice in one year
	AggregateStrict AggregationPolicy = "strict"
)

// ParseAggregationPolicy converts a configured policy name. Empty selects sum.
func ParseAggregationPolicy(s string) (AggregationPolicy, error) {
	switch AggregationPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", AggregateSum:
		return AggregateSum, nil
	case AggregateStrict:
		return AggregateStrict, nil
	default:
		return "", fmt.Errorf("unknown aggregation policy %q", s)
	}
}

type aggKey struct {
	code string
	year int
}

// Aggregate collapses records to one per (code, year) in first-seen order.
// Under AggregateSum each measure is the sum of its valid values and stays
// null only when no record carried a value. The country name is taken from
// the first record.
func Aggregate(records []domain.EmissionRecord, policy AggregationPolicy) ([]domain.EmissionRecord, error) {
	out := make([]domain.EmissionRecord, 0, len(records))
	index := make(map[aggKey]int, len(records))
	var names map[aggKey][]string

	for _, r := range records {
		key := aggKey{code: r.Code, year: r.Year}
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, r)
			continue
		}

		if policy == AggregateStrict {
			if names == nil {
				names = make(map[aggKey][]string)
			}
			if len(names[key]) == 0 {
				names[key] = []string{out[i].Country}
			}
			names[key] = append(names[key], r.Country)
			continue
		}

		out[i].CO2 = addMeasure(out[i].CO2, r.CO2)
		out[i].CO2PerCapita = addMeasure(out[i].CO2PerCapita, r.CO2PerCapita)
	}

	if len(names) > 0 {
		for _, r := range out {
			key := aggKey{code: r.Code, year: r.Year}
			if countries, dup := names[key]; dup {
				return nil, &DuplicateCodeError{Code: r.Code, Year: r.Year, Countries: countries}
			}
		}
	}

	return out, nil
}

func addMeasure(a, b domain.Measure) domain.Measure {
	switch {
	case !a.Valid:
		return b
	case !b.Valid:
		return a
	default:
		return domain.Some(a.Value + b.Value)
	}
}
