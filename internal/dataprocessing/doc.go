// Package dataprocessing prepares per-country CO₂ emissions for charting.
//
// It loads a delimited emissions file and an optional GeoJSON geometry
// source, normalizes ISO3 codes and produces derived views from the
// immutable tables:
//
//	loader := dataprocessing.NewLoader(logger)
//	table, err := loader.Load(ctx, "annual-co2-emissions-per-country.csv")
//	master := dataprocessing.MasterFromRecords(table.Records)
//	view, err := dataprocessing.MakeYearView(table.Records, master, 2020, domain.MetricCO2, dataprocessing.AggregateSum)
//
// # Column detection
//
// A single-metric file carries Entity, Code and Year plus exactly one
// measurement column whose name is not fixed. Zero or several remaining
// columns fail with *SchemaError. Rows whose code is not three letters
// are dropped and counted in EmissionTable.Dropped.
//
// # Year views
//
// MakeYearView partitions every master code into WithData or WithoutData,
// so countries never disappear from the map between years. Codes reused
// within a year are summed under AggregateSum and rejected under
// AggregateStrict.
package dataprocessing
