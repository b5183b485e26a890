package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"co2dash/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Column headers of the exported tables
var (
	YearViewHeaders = []string{"code", "country", "value", "has_data"}
	RankingHeaders  = []string{"rank", "code", "country", "value"}
	SeriesHeaders   = []string{"code", "country", "year", "value"}
)

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	outputDir string
	bom       bool
	logger    *slog.Logger
}

// NewCSVWriter creates a writer resolving relative paths against outputDir.
// bom prefixes every file with a UTF-8 BOM so Excel detects the encoding.
func NewCSVWriter(outputDir string, bom bool, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{
		outputDir: outputDir,
		bom:       bom,
		logger:    logger.With(slog.String("component", "csv_exporter")),
	}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool
}

// WriteCSV writes data to a CSV file with the given options
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) error {
	fullPath := w.resolvePath(filePath)

	w.logger.Info("Writing CSV file",
		slog.String("file_path", filePath),
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}

	if err := EncodeCSV(file, options); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// EncodeCSV writes headers and records to out
func EncodeCSV(out io.Writer, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := out.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(out)
	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteYearView writes one row per master country, countries with data first
func (w *CSVWriter) WriteYearView(filePath string, view *domain.YearView) error {
	return w.WriteCSV(filePath, WriteOptions{
		Headers:   YearViewHeaders,
		Records:   YearViewRecords(view),
		BOMPrefix: w.bom,
	})
}

// WriteRanking writes a ranking with its 1-based position
func (w *CSVWriter) WriteRanking(filePath string, entries []domain.RankEntry) error {
	return w.WriteCSV(filePath, WriteOptions{
		Headers:   RankingHeaders,
		Records:   RankingRecords(entries),
		BOMPrefix: w.bom,
	})
}

// WriteSeries writes every series point in long format
func (w *CSVWriter) WriteSeries(filePath string, series []domain.CountrySeries) error {
	return w.WriteCSV(filePath, WriteOptions{
		Headers:   SeriesHeaders,
		Records:   SeriesRecords(series),
		BOMPrefix: w.bom,
	})
}

// YearViewRecords flattens a year view. Null values are empty cells.
func YearViewRecords(view *domain.YearView) [][]string {
	records := make([][]string, 0, len(view.WithData)+len(view.WithoutData))
	for _, cv := range view.WithData {
		records = append(records, []string{cv.Code, cv.Country, formatMeasure(cv.Value), formatBool(true)})
	}
	for _, cv := range view.WithoutData {
		records = append(records, []string{cv.Code, cv.Country, formatMeasure(cv.Value), formatBool(false)})
	}
	return records
}

// RankingRecords flattens a ranking
func RankingRecords(entries []domain.RankEntry) [][]string {
	records := make([][]string, 0, len(entries))
	for i, e := range entries {
		records = append(records, []string{formatInt(i + 1), e.Code, e.Country, formatFloat(e.Value)})
	}
	return records
}

// SeriesRecords flattens series into one row per point
func SeriesRecords(series []domain.CountrySeries) [][]string {
	var records [][]string
	for _, s := range series {
		for _, p := range s.Points {
			records = append(records, []string{s.Code, s.Country, formatInt(p.Year), formatFloat(p.Value)})
		}
	}
	return records
}

func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.outputDir == "" {
		return filePath
	}
	return filepath.Join(w.outputDir, filePath)
}
