package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"co2dash/internal/shared/testutil"
)

func TestFileValidator_ValidateSourceFile(t *testing.T) {
	tests := []struct {
		name       string
		setupFunc  func(t *testing.T) string
		extensions []string
		wantErr    error
	}{
		{
			name: "valid csv",
			setupFunc: func(t *testing.T) string {
				return testutil.WriteFixture(t, "emissions.csv", testutil.SingleMetricCSV)
			},
			extensions: EmissionsExtensions,
		},
		{
			name: "extension is case insensitive",
			setupFunc: func(t *testing.T) string {
				return testutil.WriteFixture(t, "COUNTRIES.GEOJSON", testutil.CountriesGeoJSON)
			},
			extensions: GeometryExtensions,
		},
		{
			name: "any extension without a list",
			setupFunc: func(t *testing.T) string {
				return testutil.WriteFixture(t, "data.dat", "x")
			},
		},
		{
			name: "missing file",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.csv")
			},
			wantErr: ErrFileNotFound,
		},
		{
			name: "directory",
			setupFunc: func(t *testing.T) string {
				return t.TempDir()
			},
			wantErr: ErrNotAFile,
		},
		{
			name: "empty file",
			setupFunc: func(t *testing.T) string {
				return testutil.WriteFixture(t, "empty.csv", "")
			},
			extensions: EmissionsExtensions,
			wantErr:    ErrEmptyFile,
		},
		{
			name: "shapefile is not geojson",
			setupFunc: func(t *testing.T) string {
				return testutil.WriteFixture(t, "countries.shp", "binary")
			},
			extensions: GeometryExtensions,
			wantErr:    ErrUnsupportedExtension,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			v := NewFileValidator(logger)

			err := v.ValidateSourceFile(tt.setupFunc(t), tt.extensions...)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFileValidator_ValidateOutputPath(t *testing.T) {
	v := NewFileValidator(nil)
	dir := t.TempDir()

	t.Run("creates missing directories", func(t *testing.T) {
		path := filepath.Join(dir, "a", "b", "out.csv")
		require.NoError(t, v.ValidateOutputPath(path))

		info, err := os.Stat(filepath.Dir(path))
		require.NoError(t, err)
		assert.True(t, info.IsDir())

		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		assert.Empty(t, entries, "write test file must be removed")
	})

	t.Run("rejects a directory", func(t *testing.T) {
		assert.ErrorIs(t, v.ValidateOutputPath(dir), ErrNotAFile)
	})

	t.Run("parent is a file", func(t *testing.T) {
		file := filepath.Join(dir, "plain")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
		assert.Error(t, v.ValidateOutputPath(filepath.Join(file, "out.csv")))
	})
}
