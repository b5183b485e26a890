package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Render(t *testing.T) {
	tests := []struct {
		name       string
		apiError   *APIError
		wantStatus int
	}{
		{
			name:       "bad request error",
			apiError:   InvalidRequestWithError(stderrors.New("unexpected EOF")),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "dataset unavailable",
			apiError:   ErrDatasetUnavailable,
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "not found error",
			apiError:   NotFoundError("metrics"),
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			w := httptest.NewRecorder()

			err := render.Render(w, req, tt.apiError)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, w.Code)

			var body APIError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.apiError.ErrorCode, body.ErrorCode)
		})
	}
}

func TestErrValidation(t *testing.T) {
	err := ErrValidation("year", "year must be between 1750 and 2023")

	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", err.ErrorCode)
	assert.Equal(t, ValidationError{Field: "year", Message: "year must be between 1750 and 2023"}, err.Details)
}

func TestDatasetUnavailableError(t *testing.T) {
	cause := stderrors.New("open emissions.csv: no such file")
	err := DatasetUnavailableError(cause)

	assert.Equal(t, http.StatusServiceUnavailable, err.StatusCode)
	assert.Equal(t, "DATASET_UNAVAILABLE", err.ErrorCode)
	assert.Equal(t, cause.Error(), err.Details)
}

func TestNewValidationErrors(t *testing.T) {
	err := NewValidationErrors([]ValidationError{
		{Field: "metric", Message: "must be one of co2 co2_per_capita"},
		{Field: "n", Message: "must be at most 50"},
	})

	details, ok := err.Details.(ValidationErrors)
	require.True(t, ok)
	assert.Len(t, details.Errors, 2)
	assert.Equal(t, "metric", details.Errors[0].Field)
}

func TestExportError(t *testing.T) {
	err := ExportError("xlsx", stderrors.New("disk full"))

	assert.Equal(t, http.StatusInternalServerError, err.StatusCode)
	assert.Equal(t, "EXPORT_FAILED", err.ErrorCode)
	assert.Equal(t, "Failed to export xlsx", err.Message)
	assert.Equal(t, "disk full", err.Details)
}

func TestAppError(t *testing.T) {
	cause := stderrors.New("strconv.Atoi: parsing \"abc\": invalid syntax")
	err := NewParsingError("invalid year", cause).WithContext("line", 7)

	assert.Equal(t, `[PARSING] invalid year: strconv.Atoi: parsing "abc": invalid syntax`, err.Error())
	assert.True(t, stderrors.Is(err, cause))
	assert.Equal(t, 7, err.Context["line"])

	var target *AppError
	wrapped := stderrors.Join(stderrors.New("load failed"), err)
	require.True(t, stderrors.As(wrapped, &target))
	assert.Equal(t, ErrTypeParsing, target.Type)
}
