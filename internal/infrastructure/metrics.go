package infrastructure

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DashboardMetrics holds all application-specific metrics
type DashboardMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// View metrics
	ViewsComputed metric.Int64Counter
	ViewDuration  metric.Float64Histogram
	ViewWarnings  metric.Int64Counter
	ViewErrors    metric.Int64Counter

	// Dataset metrics
	DatasetRecords metric.Int64Gauge
	DatasetDropped metric.Int64Gauge

	ExportsTotal      metric.Int64Counter
	WebSocketSessions metric.Int64UpDownCounter
}

// CreateDashboardMetrics creates the application metrics on meter
func CreateDashboardMetrics(meter metric.Meter) (*DashboardMetrics, error) {
	m := &DashboardMetrics{}
	var err error

	if m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	); err != nil {
		return nil, err
	}

	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.HTTPActiveRequests, err = meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	); err != nil {
		return nil, err
	}

	if m.ViewsComputed, err = meter.Int64Counter(
		"views_computed_total",
		metric.WithDescription("Total number of derived views computed"),
	); err != nil {
		return nil, err
	}

	if m.ViewDuration, err = meter.Float64Histogram(
		"view_duration_seconds",
		metric.WithDescription("Time spent computing a derived view"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.ViewWarnings, err = meter.Int64Counter(
		"view_warnings_total",
		metric.WithDescription("Total number of chart warnings emitted"),
	); err != nil {
		return nil, err
	}

	if m.ViewErrors, err = meter.Int64Counter(
		"view_errors_total",
		metric.WithDescription("Total number of failed view computations"),
	); err != nil {
		return nil, err
	}

	if m.DatasetRecords, err = meter.Int64Gauge(
		"dataset_records",
		metric.WithDescription("Emission records held in memory"),
	); err != nil {
		return nil, err
	}

	if m.DatasetDropped, err = meter.Int64Gauge(
		"dataset_dropped_rows",
		metric.WithDescription("Rows dropped for a malformed ISO3 code"),
	); err != nil {
		return nil, err
	}

	if m.ExportsTotal, err = meter.Int64Counter(
		"exports_total",
		metric.WithDescription("Total number of file exports"),
	); err != nil {
		return nil, err
	}

	if m.WebSocketSessions, err = meter.Int64UpDownCounter(
		"websocket_sessions",
		metric.WithDescription("Number of open dashboard sessions"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordView records one view computation
func RecordView(ctx context.Context, metrics *DashboardMetrics, view string, duration time.Duration, warnings int, err error) {
	if metrics == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("view", view))
	metrics.ViewsComputed.Add(ctx, 1, attrs)
	metrics.ViewDuration.Record(ctx, duration.Seconds(), attrs)
	if warnings > 0 {
		metrics.ViewWarnings.Add(ctx, int64(warnings), attrs)
	}
	if err != nil {
		metrics.ViewErrors.Add(ctx, 1, attrs)
	}
}

// RecordDataset records the size of the loaded table
func RecordDataset(ctx context.Context, metrics *DashboardMetrics, records, dropped int) {
	if metrics == nil {
		return
	}
	metrics.DatasetRecords.Record(ctx, int64(records))
	metrics.DatasetDropped.Record(ctx, int64(dropped))
}

// RecordExport counts one export of the given format
func RecordExport(ctx context.Context, metrics *DashboardMetrics, format string) {
	if metrics == nil {
		return
	}
	metrics.ExportsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("format", format)))
}
