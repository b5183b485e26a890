package domain

import "github.com/twpayne/go-geom"

// MasterRow is one country of the master table
type MasterRow struct {
	Code     string `json:"code"`
	Country  string `json:"country"`
	Geometry geom.T `json:"-"`
}

// CountryMaster holds one row per ISO3 code in insertion order.
// It is built once and never mutated.
type CountryMaster struct {
	rows  []MasterRow
	index map[string]int
}

// NewCountryMaster builds a master from rows that are already unique by code.
// Later duplicates are ignored, so the first occurrence always wins.
func NewCountryMaster(rows []MasterRow) *CountryMaster {
	m := &CountryMaster{
		rows:  make([]MasterRow, 0, len(rows)),
		index: make(map[string]int, len(rows)),
	}
	for _, row := range rows {
		if _, seen := m.index[row.Code]; seen {
			continue
		}
		m.index[row.Code] = len(m.rows)
		m.rows = append(m.rows, row)
	}
	return m
}

// Len returns the number of countries
func (m *CountryMaster) Len() int {
	return len(m.rows)
}

// Rows returns a copy of the master rows in order
func (m *CountryMaster) Rows() []MasterRow {
	out := make([]MasterRow, len(m.rows))
	copy(out, m.rows)
	return out
}

// Codes returns the master codes in order
func (m *CountryMaster) Codes() []string {
	out := make([]string, len(m.rows))
	for i, row := range m.rows {
		out[i] = row.Code
	}
	return out
}

// Lookup finds a row by code
func (m *CountryMaster) Lookup(code string) (MasterRow, bool) {
	i, ok := m.index[code]
	if !ok {
		return MasterRow{}, false
	}
	return m.rows[i], true
}

// HasGeometry reports whether any row carries a geometry
func (m *CountryMaster) HasGeometry() bool {
	for _, row := range m.rows {
		if row.Geometry != nil {
			return true
		}
	}
	return false
}

// CountryValue is a master row joined with its aggregated measure for one year
type CountryValue struct {
	Code    string  `json:"code"`
	Country string  `json:"country"`
	Value   Measure `json:"value"`
}

// YearView is the master left-joined with one year of aggregated records.
// WithData and WithoutData are disjoint and together cover every master code.
type YearView struct {
	Year        int            `json:"year"`
	Metric      Metric         `json:"metric"`
	Title       string         `json:"title"`
	WithData    []CountryValue `json:"with_data"`
	WithoutData []CountryValue `json:"without_data"`
	// Unmatched lists record codes of this year missing from the master
	Unmatched []string `json:"unmatched,omitempty"`
}

// Codes returns every code of the view, with-data first
func (v *YearView) Codes() []string {
	out := make([]string, 0, len(v.WithData)+len(v.WithoutData))
	for _, cv := range v.WithData {
		out = append(out, cv.Code)
	}
	for _, cv := range v.WithoutData {
		out = append(out, cv.Code)
	}
	return out
}

// RankEntry is one bar of a ranking chart
type RankEntry struct {
	Country string  `json:"country"`
	Code    string  `json:"code"`
	Value   float64 `json:"value"`
}

// SeriesPoint is one point of a country time series
type SeriesPoint struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// CountrySeries is the time series of one country
type CountrySeries struct {
	Code    string        `json:"code"`
	Country string        `json:"country"`
	Points  []SeriesPoint `json:"points"`
}

// YearBounds is the year range present in the data
type YearBounds struct {
	Min int `json:"min_year"`
	Max int `json:"max_year"`
}

// Contains reports whether year lies inside the bounds
func (b YearBounds) Contains(year int) bool {
	return year >= b.Min && year <= b.Max
}

// WarningKind classifies a non-fatal view warning
type WarningKind string

const (
	WarningEmptyYear      WarningKind = "empty_year"
	WarningNoMetricValues WarningKind = "no_metric_values"
)

// Warning is an informational message attached to a single chart.
// A chart with a warning is skipped, other charts still render.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Chart   string      `json:"chart,omitempty"`
	Year    int         `json:"year,omitempty"`
	Metric  Metric      `json:"metric,omitempty"`
	Message string      `json:"message"`
}
