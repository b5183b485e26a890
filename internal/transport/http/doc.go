// Package http holds the HTTP handlers of the dashboard API.
//
// Handlers are thin: they parse and validate query parameters, call the
// dashboard service and render the result. Service and pipeline errors are
// mapped onto API errors and written as RFC 7807 problem documents by
// errors.ErrorHandler.
//
// Routes:
//
//	GET /api/dashboard/bounds
//	GET /api/dashboard/countries
//	GET /api/dashboard/map?year=&metric=
//	GET /api/dashboard/map.geojson?year=&metric=
//	GET /api/dashboard/ranking?year=&metric=&n=&countries=
//	GET /api/dashboard/series?countries=&metric=&year=
//	GET /api/dashboard/charts/ranking.png
//	GET /api/dashboard/charts/series.png
//	GET /api/dashboard/export/{year}.csv
//	GET /api/dashboard/export/{year}.xlsx
//	GET /api/health, /api/health/ready, /api/health/live, /api/version
//	GET /metrics
//
// A year of 0 selects the latest year of the dataset. countries is a
// comma-separated list of ISO3 codes.
package http
