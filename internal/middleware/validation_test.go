package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "co2dash/internal/errors"
)

type testControls struct {
	Year      int      `json:"year" validate:"omitempty,gte=0"`
	Metric    string   `json:"metric" validate:"omitempty,oneof=co2 co2_per_capita"`
	Countries []string `json:"countries" validate:"omitempty,dive,iso3"`
	TopN      int      `json:"n" validate:"omitempty,min=1,max=50"`
}

func TestValidator_ValidateStruct(t *testing.T) {
	v := NewValidator(nil)

	tests := []struct {
		name       string
		input      testControls
		wantFields []string
	}{
		{name: "empty is valid", input: testControls{}},
		{name: "full valid", input: testControls{Year: 2020, Metric: "co2", Countries: []string{"chl", "USA"}, TopN: 50}},
		{name: "bad metric", input: testControls{Metric: "ch4"}, wantFields: []string{"metric"}},
		{name: "n too large", input: testControls{TopN: 51}, wantFields: []string{"n"}},
		{name: "bad country", input: testControls{Countries: []string{"CHL", "OWID_WRL"}}, wantFields: []string{"countries"}},
		{name: "several", input: testControls{Metric: "x", TopN: 99, Countries: []string{"12"}}, wantFields: []string{"metric", "countries", "n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateStruct(tt.input)
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}

			var apiErr *apierrors.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			assert.Equal(t, "VALIDATION_FAILED", apiErr.ErrorCode)

			details, ok := apiErr.Details.(apierrors.ValidationErrors)
			require.True(t, ok)
			var fields []string
			for _, fe := range details.Errors {
				fields = append(fields, fe.Field)
				assert.NotEmpty(t, fe.Message)
			}
			assert.Equal(t, tt.wantFields, fields)
		})
	}
}

func TestQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?year=2020&bad=x&countries=chl,%20usa,,&empty=", nil)

	year, err := QueryInt(req, "year")
	require.NoError(t, err)
	assert.Equal(t, 2020, year)

	missing, err := QueryInt(req, "n")
	require.NoError(t, err)
	assert.Zero(t, missing)

	_, err = QueryInt(req, "bad")
	var apiErr *apierrors.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "VALIDATION_FAILED", apiErr.ErrorCode)

	assert.Equal(t, []string{"chl", "usa"}, QueryList(req, "countries"))
	assert.Nil(t, QueryList(req, "empty"))
	assert.Nil(t, QueryList(req, "missing"))
}

func TestIsISO3Messages(t *testing.T) {
	v := NewValidator(nil)
	err := v.ValidateStruct(testControls{Countries: []string{"AB1"}})

	var apiErr *apierrors.APIError
	require.True(t, errors.As(err, &apiErr))
	details := apiErr.Details.(apierrors.ValidationErrors)
	require.Len(t, details.Errors, 1)
	assert.Contains(t, details.Errors[0].Message, "three-letter ISO codes")
}
