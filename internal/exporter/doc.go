// Package exporter writes dashboard views to files and streams.
//
// CSVWriter flattens year views, rankings and series into CSV, optionally
// with a UTF-8 BOM for Excel. WorkbookExporter writes the same tables into
// an XLSX workbook with one sheet per year view plus a ranking sheet.
// GeoJSONWriter joins a year view with the country master geometries into a
// FeatureCollection for choropleth rendering.
//
// Example usage:
//
//	writer := exporter.NewCSVWriter("exports", true, logger)
//	err := writer.WriteYearView("co2_2020.csv", view)
//
//	wb := exporter.NewWorkbookExporter(logger)
//	err = wb.Export("exports/co2.xlsx", exporter.Workbook{Views: views, Ranking: entries})
package exporter
