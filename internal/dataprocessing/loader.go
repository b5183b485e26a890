package dataprocessing

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"co2dash/internal/errors"
	"co2dash/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Loader reads emissions and geometry sources into immutable tables.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a loader. A nil logger falls back to slog.Default.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		logger: logger.With(slog.String("component", "loader")),
	}
}

// Load sniffs the header of path and dispatches to LoadDataset when it
// carries an iso_code column, or to LoadEmissions otherwise.
func (l *Loader) Load(ctx context.Context, path string) (*domain.EmissionTable, error) {
	header, _, err := readTable(path)
	if err != nil {
		return nil, err
	}
	if detectLayout(header) == LayoutFull {
		return l.LoadDataset(ctx, path)
	}
	return l.LoadEmissions(ctx, path)
}

// LoadEmissions loads a file with Entity, Code, Year and exactly one
// measurement column. The measurement column is renamed to co2 whatever
// its original name.
func (l *Loader) LoadEmissions(ctx context.Context, path string) (*domain.EmissionTable, error) {
	header, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}

	cols, err := mapSingleMetric(path, header)
	if err != nil {
		l.logger.ErrorContext(ctx, "emissions schema rejected",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, errors.NewAppError(errors.ErrTypeSchema, "emissions schema rejected", err).WithContext("path", path)
	}

	table, err := l.buildTable(ctx, path, cols, rows)
	if err != nil {
		return nil, err
	}
	table.Metrics = []domain.Metric{domain.MetricCO2}
	return table, nil
}

// LoadDataset loads the full layout: country, iso_code, year, co2 and co2_per_capita.
func (l *Loader) LoadDataset(ctx context.Context, path string) (*domain.EmissionTable, error) {
	header, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}

	cols, err := mapFull(path, header)
	if err != nil {
		l.logger.ErrorContext(ctx, "dataset schema rejected",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, errors.NewAppError(errors.ErrTypeSchema, "dataset schema rejected", err).WithContext("path", path)
	}

	table, err := l.buildTable(ctx, path, cols, rows)
	if err != nil {
		return nil, err
	}
	table.Metrics = []domain.Metric{domain.MetricCO2, domain.MetricCO2PerCapita}
	return table, nil
}

func (l *Loader) buildTable(ctx context.Context, path string, cols columnMap, rows []csvRow) (*domain.EmissionTable, error) {
	table := &domain.EmissionTable{
		Records:      make([]domain.EmissionRecord, 0, len(rows)),
		SourceColumn: cols.source,
	}

	for i, row := range rows {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		code, ok := NormalizeCode(row.field(cols.code))
		if !ok {
			table.Dropped++
			continue
		}

		yearText := row.field(cols.year)
		year, err := strconv.Atoi(yearText)
		if err != nil {
			return nil, errors.NewParsingError("invalid year", err).
				WithContext("path", path).
				WithContext("line", row.line)
		}

		co2, err := parseMeasure(row.field(cols.co2))
		if err != nil {
			return nil, errors.NewParsingError(fmt.Sprintf("invalid %s value", cols.source), err).
				WithContext("path", path).
				WithContext("line", row.line)
		}

		record := domain.EmissionRecord{
			Country: row.field(cols.country),
			Code:    code,
			Year:    year,
			CO2:     co2,
		}

		if cols.perCap >= 0 {
			record.CO2PerCapita, err = parseMeasure(row.field(cols.perCap))
			if err != nil {
				return nil, errors.NewParsingError("invalid co2_per_capita value", err).
					WithContext("path", path).
					WithContext("line", row.line)
			}
		}

		table.Records = append(table.Records, record)
	}

	l.logger.InfoContext(ctx, "emissions loaded",
		slog.String("path", path),
		slog.String("source_column", cols.source),
		slog.Int("records", len(table.Records)),
		slog.Int("dropped", table.Dropped))

	return table, nil
}

// parseMeasure parses a numeric cell. An empty cell is a null measure.
func parseMeasure(text string) (domain.Measure, error) {
	if text == "" {
		return domain.Measure{}, nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return domain.Measure{}, err
	}
	return domain.Some(v), nil
}

// csvRow is a data row with the line it started on
type csvRow struct {
	fields []string
	line   int
}

func (r csvRow) field(i int) string {
	if i < 0 || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

// readTable reads a delimited file, stripping a BOM and detecting the delimiter.
func readTable(path string) ([]string, []csvRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.NewStorageError("failed to read emissions file", err).
			WithContext("path", path)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	headerLine := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		headerLine = data[:i]
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectDelimiter(headerLine)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, errors.NewAppError(errors.ErrTypeSchema, "file has no header",
			&SchemaError{Path: path, Missing: []string{"header"}}).WithContext("path", path)
	}
	if err != nil {
		return nil, nil, errors.NewParsingError("failed to read header", err).WithContext("path", path)
	}

	var rows []csvRow
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.NewParsingError("malformed row", err).WithContext("path", path)
		}
		if isBlank(fields) {
			continue
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, csvRow{fields: fields, line: line})
	}

	return header, rows, nil
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
