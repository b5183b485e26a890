package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Metric identifies which measurement a view is built from
type Metric string

const (
	MetricCO2          Metric = "co2"
	MetricCO2PerCapita Metric = "co2_per_capita"
)

// ParseMetric converts a user supplied metric name. The empty string selects the total.
func ParseMetric(s string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(s))) {
	case "", MetricCO2:
		return MetricCO2, nil
	case MetricCO2PerCapita:
		return MetricCO2PerCapita, nil
	default:
		return "", fmt.Errorf("unknown metric %q", s)
	}
}

// Label returns the human readable chart label for the metric
func (m Metric) Label() string {
	if m == MetricCO2PerCapita {
		return "CO₂ per capita (t)"
	}
	return "CO₂ emissions (t)"
}

// Measure is a nullable measurement. Empty cells in the source load as an invalid measure.
type Measure struct {
	Value float64
	Valid bool
}

// Some returns a valid measure holding v
func Some(v float64) Measure {
	return Measure{Value: v, Valid: true}
}

// MarshalJSON encodes invalid measures as null
func (m Measure) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

// UnmarshalJSON accepts a number or null
func (m *Measure) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Measure{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Some(v)
	return nil
}

// EmissionRecord is one (country, year) row of the emissions table.
// Code is always three uppercase ASCII letters.
type EmissionRecord struct {
	Country      string  `json:"country"`
	Code         string  `json:"code"`
	Year         int     `json:"year"`
	CO2          Measure `json:"co2"`
	CO2PerCapita Measure `json:"co2_per_capita"`
}

// Value returns the measure selected by metric
func (r EmissionRecord) Value(metric Metric) Measure {
	if metric == MetricCO2PerCapita {
		return r.CO2PerCapita
	}
	return r.CO2
}

// EmissionTable is the loaded, normalized emissions dataset
type EmissionTable struct {
	Records []EmissionRecord `json:"records"`

	// SourceColumn is the original name of the measurement column
	SourceColumn string `json:"source_column"`
	// Metrics lists the metrics the source actually carries
	Metrics []Metric `json:"metrics"`
	// Dropped counts rows discarded for a malformed ISO3 code
	Dropped int `json:"dropped"`
}

// HasMetric reports whether the table was loaded with the given metric
func (t *EmissionTable) HasMetric(metric Metric) bool {
	for _, m := range t.Metrics {
		if m == metric {
			return true
		}
	}
	return false
}
