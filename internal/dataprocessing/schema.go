package dataprocessing

import (
	"bytes"
	"fmt"
	"strings"
)

// Canonical column names after renaming
const (
	ColumnCountry      = "country"
	ColumnCode         = "code"
	ColumnYear         = "year"
	ColumnCO2          = "co2"
	ColumnCO2PerCapita = "co2_per_capita"
)

// Layout identifies the shape of an emissions file
type Layout int

const (
	// LayoutSingleMetric is Entity, Code, Year plus exactly one measurement column
	LayoutSingleMetric Layout = iota
	// LayoutFull is country, iso_code, year, co2, co2_per_capita
	LayoutFull
)

func (l Layout) String() string {
	if l == LayoutFull {
		return "full"
	}
	return "single_metric"
}

var identifierAliases = map[string]string{
	"entity":   ColumnCountry,
	"country":  ColumnCountry,
	"code":     ColumnCode,
	"iso_code": ColumnCode,
	"year":     ColumnYear,
}

var fullLayoutColumns = []string{"country", "iso_code", "year", ColumnCO2, ColumnCO2PerCapita}

// SchemaError reports a file whose columns cannot be mapped onto the record layout.
// Candidates holds the measurement columns that were found, Missing the required
// columns that were not.
type SchemaError struct {
	Path       string
	Candidates []string
	Missing    []string
}

func (e *SchemaError) Error() string {
	switch {
	case len(e.Missing) > 0:
		return fmt.Sprintf("schema error in %s: missing columns %s", e.Path, strings.Join(e.Missing, ", "))
	case len(e.Candidates) == 0:
		return fmt.Sprintf("schema error in %s: no measurement column found", e.Path)
	default:
		return fmt.Sprintf("schema error in %s: expected one measurement column, found %d (%s)",
			e.Path, len(e.Candidates), strings.Join(e.Candidates, ", "))
	}
}

// DuplicateCodeError is returned by the strict aggregation policy when
// a code appears more than once in a single year.
type DuplicateCodeError struct {
	Code      string
	Year      int
	Countries []string
}

func (e *DuplicateCodeError) Error() string {
	return fmt.Sprintf("code %s appears %d times in %d (%s)",
		e.Code, len(e.Countries), e.Year, strings.Join(e.Countries, ", "))
}

// columnMap holds the positions of the canonical columns in a header row
type columnMap struct {
	country int
	code    int
	year    int
	co2     int
	perCap  int

	source string
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// detectLayout reports whether header carries the full layout
func detectLayout(header []string) Layout {
	for _, h := range header {
		if normalizeHeader(h) == "iso_code" {
			return LayoutFull
		}
	}
	return LayoutSingleMetric
}

// mapSingleMetric locates the identifying columns and the one remaining measurement column
func mapSingleMetric(path string, header []string) (columnMap, error) {
	m := columnMap{country: -1, code: -1, year: -1, co2: -1, perCap: -1}
	var candidates []int

	for i, h := range header {
		canonical, ok := identifierAliases[normalizeHeader(h)]
		if !ok {
			candidates = append(candidates, i)
			continue
		}
		switch {
		case canonical == ColumnCountry && m.country < 0:
			m.country = i
		case canonical == ColumnCode && m.code < 0:
			m.code = i
		case canonical == ColumnYear && m.year < 0:
			m.year = i
		default:
			candidates = append(candidates, i)
		}
	}

	var missing []string
	if m.country < 0 {
		missing = append(missing, "Entity")
	}
	if m.code < 0 {
		missing = append(missing, "Code")
	}
	if m.year < 0 {
		missing = append(missing, "Year")
	}
	if len(missing) > 0 {
		return m, &SchemaError{Path: path, Missing: missing}
	}

	if len(candidates) != 1 {
		var names []string
		for _, c := range candidates {
			names = append(names, strings.TrimSpace(header[c]))
		}
		return m, &SchemaError{Path: path, Candidates: names}
	}

	m.co2 = candidates[0]
	m.source = strings.TrimSpace(header[m.co2])
	return m, nil
}

// mapFull locates the columns of the full layout. Extra columns are ignored.
func mapFull(path string, header []string) (columnMap, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, seen := pos[key]; !seen {
			pos[key] = i
		}
	}

	var missing []string
	for _, col := range fullLayoutColumns {
		if _, ok := pos[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return columnMap{}, &SchemaError{Path: path, Missing: missing}
	}

	return columnMap{
		country: pos["country"],
		code:    pos["iso_code"],
		year:    pos["year"],
		co2:     pos[ColumnCO2],
		perCap:  pos[ColumnCO2PerCapita],
		source:  ColumnCO2,
	}, nil
}

// detectDelimiter picks the candidate that splits the header line into the most fields
func detectDelimiter(headerLine []byte) rune {
	best, bestCount := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := bytes.Count(headerLine, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// NormalizeCode trims and uppercases a code and reports whether it is
// exactly three ASCII letters.
func NormalizeCode(raw string) (string, bool) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if len(code) != 3 {
		return code, false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return code, false
		}
	}
	return code, true
}
