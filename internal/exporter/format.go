package exporter

import (
	"strconv"

	"co2dash/pkg/contracts/domain"
)

// formatFloat formats a value with the shortest representation that round-trips
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatMeasure formats a nullable measure. Null is an empty cell.
func formatMeasure(m domain.Measure) string {
	if !m.Valid {
		return ""
	}
	return formatFloat(m.Value)
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}

// formatBool formats a boolean value for CSV output
func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
