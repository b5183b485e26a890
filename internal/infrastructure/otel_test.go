package infrastructure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"co2dash/internal/config"
	"co2dash/internal/shared/testutil"
)

func TestNewOTelConfig(t *testing.T) {
	cfg := NewOTelConfig(config.TelemetryConfig{
		ServiceName:    "co2dash-test",
		TracingEnabled: true,
		TraceExporter:  "stdout",
		MetricsEnabled: false,
	})

	assert.Equal(t, "co2dash-test", cfg.ServiceName)
	assert.Equal(t, config.AppVersion, cfg.ServiceVersion)
	assert.True(t, cfg.EnableTracing)
	assert.False(t, cfg.EnableMetrics)
	assert.Equal(t, "none", cfg.MetricExporter)
}

// The Prometheus exporter registers with the default registry, so it is
// initialized by this test only.
func TestOTelInitialization(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)

	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:    "co2dash-test",
		ServiceVersion: "test",
		Environment:    "test",
		TraceExporter:  "stdout",
		MetricExporter: "prometheus",
		EnableMetrics:  true,
		EnableTracing:  true,
		SampleRatio:    1.0,
	}, logger)
	require.NoError(t, err)

	assert.NotNil(t, providers.TracerProvider)
	assert.NotNil(t, providers.MeterProvider)
	require.NotNil(t, providers.PrometheusHTTP)
	assert.True(t, logs.ContainsMessage("tracing initialized"))

	ctx, span := providers.Tracer.Start(context.Background(), "make_year_view")
	assert.Equal(t, span.SpanContext().TraceID().String(), TraceIDFromContext(ctx))
	RecordError(ctx, errors.New("schema error"))
	span.End()

	metrics, err := CreateDashboardMetrics(providers.Meter)
	require.NoError(t, err)
	RecordView(ctx, metrics, "map", 3*time.Millisecond, 1, nil)
	RecordDataset(ctx, metrics, 7, 2)
	RecordExport(ctx, metrics, "csv")

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "views_computed_total")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(shutdownCtx))
}

func TestOTelDisabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:    "co2dash-test",
		TraceExporter:  "none",
		MetricExporter: "none",
	}, logger)
	require.NoError(t, err)

	assert.Nil(t, providers.TracerProvider)
	assert.Nil(t, providers.MeterProvider)
	assert.Nil(t, providers.PrometheusHTTP)

	ctx, span := providers.Tracer.Start(context.Background(), "noop")
	assert.False(t, span.IsRecording())
	span.End()

	metrics, err := CreateDashboardMetrics(providers.Meter)
	require.NoError(t, err)
	RecordView(ctx, metrics, "ranking", time.Millisecond, 0, errors.New("boom"))
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestOTelUnsupportedExporter(t *testing.T) {
	_, err := InitializeOTel(&OTelConfig{
		EnableTracing: true,
		TraceExporter: "jaeger",
	}, NoopProviders(slog.New(slog.NewTextHandler(io.Discard, nil))).Logger)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported trace exporter")
}

func TestRecordHelpers_NilMetrics(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordView(context.Background(), nil, "map", time.Second, 1, nil)
		RecordDataset(context.Background(), nil, 1, 0)
		RecordExport(context.Background(), nil, "xlsx")
	})
}
