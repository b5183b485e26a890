package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "co2dash/internal/errors"
	"co2dash/internal/services"
	"co2dash/internal/shared/testutil"
)

type readiness struct {
	ready bool
	err   error
}

func (r readiness) Ready() (bool, error) { return r.ready, r.err }

func newHealthRouter(t *testing.T, dataset services.ReadinessChecker) http.Handler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	handler := NewHealthHandler(services.NewHealthService("v1.0.0-test", "2026-01-01", dataset, nil, logger), logger)

	r := chi.NewRouter()
	r.Mount("/api/health", handler.Routes())
	r.Get("/api/version", handler.Version)
	return r
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name           string
		dataset        services.ReadinessChecker
		endpoint       string
		expectedStatus int
		checkResponse  func(t *testing.T, body map[string]interface{})
	}{
		{
			name:           "health check",
			endpoint:       "/api/health",
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "ok", body["status"])
				assert.Contains(t, body, "timestamp")
				assert.Equal(t, "v1.0.0-test", body["version"])
			},
		},
		{
			name:           "ready once loaded",
			dataset:        readiness{ready: true},
			endpoint:       "/api/health/ready",
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "ready", body["status"])
				svcs := body["services"].(map[string]interface{})
				assert.Contains(t, svcs, "dataset")
				assert.Contains(t, svcs, "websocket")
			},
		},
		{
			name:           "not ready after a failed load",
			dataset:        readiness{err: errors.New("schema error")},
			endpoint:       "/api/health/ready",
			expectedStatus: http.StatusServiceUnavailable,
			checkResponse: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "not_ready", body["status"])
			},
		},
		{
			name:           "liveness",
			endpoint:       "/api/health/live",
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "alive", body["status"])
				assert.Contains(t, body, "runtime")
			},
		},
		{
			name:           "version",
			endpoint:       "/api/version",
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "v1.0.0-test", body["version"])
				assert.Equal(t, "2026-01-01", body["build_time"])
				assert.Contains(t, body, "go_version")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dataset := tt.dataset
			if dataset == nil {
				dataset = readiness{ready: true}
			}
			rec := httptest.NewRecorder()
			newHealthRouter(t, dataset).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.endpoint, nil))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			tt.checkResponse(t, body)
		})
	}
}

func TestMetricsHandler(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	errorHandler := apierrors.NewErrorHandler(logger, false)

	t.Run("disabled", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewMetricsHandler(nil, errorHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("delegates to exporter", func(t *testing.T) {
		exporter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("co2dash_views_total 1\n"))
		})
		rec := httptest.NewRecorder()
		NewMetricsHandler(exporter, errorHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "co2dash_views_total")
	})
}
