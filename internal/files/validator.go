package files

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "permitpulse/internal/errors"
)

// Validator checks dataset inputs and artifact destinations before a run
type Validator struct {
	logger *slog.Logger
}

// NewValidator creates a new file validator
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{logger: logger}
}

// ValidateDatasetFile checks that path names a readable permit dataset file
// with a supported extension.
func (v *Validator) ValidateDatasetFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("Dataset file does not exist",
			slog.String("file", path))
		return apperrors.NewInputMissingError("dataset file not found: "+path, err)
	}
	if err != nil {
		v.logger.Error("Failed to stat dataset file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return apperrors.NewInputMissingError("dataset file not readable: "+path, err)
	}
	if info.IsDir() {
		v.logger.Error("Dataset path is a directory, not a file",
			slog.String("path", path))
		return apperrors.NewValidationError("dataset path is a directory: " + path)
	}

	if strings.HasPrefix(filepath.Base(path), "~$") {
		v.logger.Warn("Skipping temporary Excel lock file",
			slog.String("file", path))
		return apperrors.NewValidationError("dataset file is an Excel lock file: " + path)
	}

	if !isDatasetFile(filepath.Base(path)) {
		v.logger.Error("Dataset file has an unsupported extension",
			slog.String("file", path),
			slog.String("extension", filepath.Ext(path)))
		return apperrors.NewValidationError("unsupported dataset extension: " + filepath.Ext(path))
	}

	// Check the file is readable by opening it
	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("Dataset file is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return apperrors.NewInputMissingError("dataset file not readable: "+path, err)
	}
	file.Close()

	v.logger.Debug("Dataset file validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputDirectory ensures the reports directory exists and is
// writable.
func (v *Validator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError("failed to create output directory "+dir, err)
	}

	// Verify it's writable by creating a test file
	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError("output directory not writable: "+dir, err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}

// ValidateInputDirectory checks that dir exists and is a directory. It is
// called before discovery when no explicit input file is given.
func (v *Validator) ValidateInputDirectory(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		v.logger.Error("Input directory does not exist",
			slog.String("directory", dir))
		return apperrors.NewInputMissingError("input directory not found: "+dir, err)
	}
	if err != nil {
		v.logger.Error("Failed to stat input directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewInputMissingError("input directory not readable: "+dir, err)
	}
	if !info.IsDir() {
		v.logger.Error("Input path is not a directory",
			slog.String("path", dir))
		return apperrors.NewValidationError("input path is not a directory: " + dir)
	}

	return nil
}
