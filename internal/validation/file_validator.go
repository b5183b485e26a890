package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Source file failures
var (
	ErrFileNotFound         = errors.New("file does not exist")
	ErrNotAFile             = errors.New("path is a directory, not a file")
	ErrEmptyFile            = errors.New("file is empty")
	ErrUnsupportedExtension = errors.New("unsupported file extension")
)

// Accepted extensions of the data sources
var (
	EmissionsExtensions = []string{".csv", ".tsv", ".txt"}
	GeometryExtensions  = []string{".geojson", ".json"}
)

// FileValidator checks data sources before loading and export targets before writing
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger.With(slog.String("component", "file_validator")),
	}
}

// ValidateSourceFile checks that path is a readable, non-empty regular file.
// When extensions are given the file must carry one of them, case-insensitively.
func (v *FileValidator) ValidateSourceFile(path string, extensions ...string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("Source file does not exist",
			slog.String("file", path))
		return fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotAFile, path)
	}

	if len(extensions) > 0 {
		ext := strings.ToLower(filepath.Ext(path))
		if !contains(extensions, ext) {
			v.logger.Error("Source file has an unsupported extension",
				slog.String("file", path),
				slog.String("extension", ext),
				slog.Any("accepted", extensions))
			return fmt.Errorf("%w %q for %s, want one of %s",
				ErrUnsupportedExtension, ext, path, strings.Join(extensions, ", "))
		}
	}

	if info.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	// Check if file is readable by opening it
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("Source file validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputPath makes sure the directory of path exists and is writable
// and that path itself is not a directory
func (v *FileValidator) ValidateOutputPath(path string) error {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotAFile, path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	// Verify it's writable by creating a test file
	testFile, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	testFile.Close()
	os.Remove(testFile.Name())

	return nil
}

func contains(list []string, ext string) bool {
	for _, e := range list {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}
