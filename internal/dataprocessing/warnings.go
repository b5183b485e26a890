package dataprocessing

import (
	"fmt"

	"co2dash/pkg/contracts/domain"
)

// Chart names used to attach warnings to a single chart
const (
	ChartMap     = "map"
	ChartRanking = "ranking"
	ChartSeries  = "series"
)

// CheckYear returns an empty_year warning when no record falls in year
func CheckYear(records []domain.EmissionRecord, year int, chart string) *domain.Warning {
	for _, r := range records {
		if r.Year == year {
			return nil
		}
	}
	return &domain.Warning{
		Kind:    domain.WarningEmptyYear,
		Chart:   chart,
		Year:    year,
		Message: fmt.Sprintf("no emissions data for %d", year),
	}
}

// CheckMetric returns a no_metric_values warning when none of records
// carries a value for metric. records is expected to be already filtered.
func CheckMetric(records []domain.EmissionRecord, metric domain.Metric, year int, chart string) *domain.Warning {
	for _, r := range records {
		if r.Value(metric).Valid {
			return nil
		}
	}
	msg := fmt.Sprintf("no %s values for the selected countries", metric)
	if year != 0 {
		msg = fmt.Sprintf("no %s values for the selected countries in %d", metric, year)
	}
	return &domain.Warning{
		Kind:    domain.WarningNoMetricValues,
		Chart:   chart,
		Year:    year,
		Metric:  metric,
		Message: msg,
	}
}
