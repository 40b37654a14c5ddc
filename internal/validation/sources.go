package validation

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"

	"cohortetl/internal/config"
	apperrors "cohortetl/internal/errors"
)

// SourceValidator checks that every configured source exists before any is read
type SourceValidator struct {
	fs     afero.Fs
	logger *slog.Logger
}

// NewSourceValidator creates a new source validator reading through fs
func NewSourceValidator(fs afero.Fs, logger *slog.Logger) *SourceValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &SourceValidator{
		fs:     fs,
		logger: logger.With(slog.String("component", "source_validator")),
	}
}

// ValidateCohorts reports every missing or malformed source path of every
// cohort at once. The returned error is structural.
func (v *SourceValidator) ValidateCohorts(cohorts []config.CohortConfig) error {
	var errs *multierror.Error
	for _, c := range cohorts {
		if c.AttendanceDir != "" {
			if err := v.ValidateInputDirectory(c.AttendanceDir); err != nil {
				errs = multierror.Append(errs, withCohort(err, c.Name, "attendance"))
			}
		}
		for _, wb := range []struct{ source, path string }{
			{"assessment", c.AssessmentFile},
			{"participation", c.ParticipationFile},
			{"status", c.StatusFile},
		} {
			if wb.path == "" {
				continue
			}
			if err := v.ValidateExcelFile(wb.path); err != nil {
				errs = multierror.Append(errs, withCohort(err, c.Name, wb.source))
			}
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		v.logger.Error("Source validation failed",
			slog.Int("problems", errs.Len()),
			slog.String("error", err.Error()))
		return err
	}
	v.logger.Debug("Sources validated", slog.Int("cohorts", len(cohorts)))
	return nil
}

// ValidateInputDirectory checks that dir exists and is a directory
func (v *SourceValidator) ValidateInputDirectory(dir string) error {
	info, err := v.fs.Stat(dir)
	if err != nil {
		return apperrors.NewStructuralError(fmt.Sprintf("input directory %s does not exist", dir), err)
	}
	if !info.IsDir() {
		return apperrors.NewStructuralError(fmt.Sprintf("%s is not a directory", dir), nil)
	}
	return nil
}

// ValidateFile checks that path exists and is a regular file
func (v *SourceValidator) ValidateFile(path string) error {
	info, err := v.fs.Stat(path)
	if err != nil {
		return apperrors.NewStructuralError(fmt.Sprintf("file %s does not exist", path), err)
	}
	if info.IsDir() {
		return apperrors.NewStructuralError(fmt.Sprintf("%s is a directory, not a file", path), nil)
	}
	return nil
}

// ValidateExcelFile checks that path is an existing workbook that is not an
// Office lock file
func (v *SourceValidator) ValidateExcelFile(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".xlsx" && ext != ".xlsm" {
		return apperrors.NewStructuralError(fmt.Sprintf("file %s is not an Excel workbook (extension: %s)", path, ext), nil)
	}
	if strings.HasPrefix(filepath.Base(path), "~$") {
		return apperrors.NewStructuralError(fmt.Sprintf("file %s is a temporary Excel file", path), nil)
	}
	return v.ValidateFile(path)
}

func withCohort(err error, cohort, source string) error {
	if appErr, ok := err.(*apperrors.AppError); ok {
		return appErr.WithContext("cohort", cohort).WithContext("source", source)
	}
	return err
}
