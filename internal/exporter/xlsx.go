package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"co2dash/pkg/contracts/domain"
)

// RankingSheet is the name of the ranking sheet of an exported workbook
const RankingSheet = "Ranking"

// Workbook is the content of an XLSX export
type Workbook struct {
	Views   []*domain.YearView
	Ranking []domain.RankEntry
}

// WorkbookExporter writes year views and a ranking to an Excel workbook.
// Each view gets its own sheet, named after its year and metric.
type WorkbookExporter struct {
	logger *slog.Logger
}

// NewWorkbookExporter creates a workbook exporter
func NewWorkbookExporter(logger *slog.Logger) *WorkbookExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookExporter{logger: logger.With(slog.String("component", "xlsx_exporter"))}
}

// Export builds the workbook and saves it to path
func (e *WorkbookExporter) Export(path string, wb Workbook) error {
	f, err := e.Build(wb)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	e.logger.Info("Workbook exported",
		slog.String("path", path),
		slog.Int("sheets", len(f.GetSheetList())))
	return nil
}

// Encode builds the workbook and writes it to w
func (e *WorkbookExporter) Encode(w io.Writer, wb Workbook) error {
	f, err := e.Build(wb)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Build assembles the workbook in memory. The caller closes the file.
func (e *WorkbookExporter) Build(wb Workbook) (*excelize.File, error) {
	f := excelize.NewFile()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	first := true
	addSheet := func(name string) error {
		if first {
			first = false
			return f.SetSheetName("Sheet1", name)
		}
		_, err := f.NewSheet(name)
		return err
	}

	for _, view := range wb.Views {
		name := fmt.Sprintf("%d %s", view.Year, view.Metric)
		if err := addSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to add sheet %s: %w", name, err)
		}
		if err := writeYearViewSheet(f, name, header, view); err != nil {
			f.Close()
			return nil, err
		}
	}

	if err := addSheet(RankingSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to add ranking sheet: %w", err)
	}
	if err := writeRankingSheet(f, RankingSheet, header, wb.Ranking); err != nil {
		f.Close()
		return nil, err
	}

	f.SetActiveSheet(0)
	return f, nil
}

func writeHeader(f *excelize.File, sheet string, style int, headers []string) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, cell[:1], cell[:1], 18); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	return f.SetCellStyle(sheet, "A1", last, style)
}

func writeYearViewSheet(f *excelize.File, sheet string, style int, view *domain.YearView) error {
	if err := writeHeader(f, sheet, style, YearViewHeaders); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", sheet, err)
	}

	row := 2
	write := func(cv domain.CountryValue, hasData bool) error {
		if err := f.SetCellValue(sheet, fmt.Sprintf("A%d", row), cv.Code); err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, fmt.Sprintf("B%d", row), cv.Country); err != nil {
			return err
		}
		if cv.Value.Valid {
			if err := f.SetCellValue(sheet, fmt.Sprintf("C%d", row), cv.Value.Value); err != nil {
				return err
			}
		}
		if err := f.SetCellValue(sheet, fmt.Sprintf("D%d", row), hasData); err != nil {
			return err
		}
		row++
		return nil
	}

	for _, cv := range view.WithData {
		if err := write(cv, true); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
		}
	}
	for _, cv := range view.WithoutData {
		if err := write(cv, false); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
		}
	}
	return nil
}

func writeRankingSheet(f *excelize.File, sheet string, style int, entries []domain.RankEntry) error {
	if err := writeHeader(f, sheet, style, RankingHeaders); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", sheet, err)
	}
	for i, e := range entries {
		row := i + 2
		values := []interface{}{i + 1, e.Code, e.Country, e.Value}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return fmt.Errorf("failed to write ranking row %d: %w", row, err)
		}
	}
	return nil
}
