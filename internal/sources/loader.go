package sources

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"cohortetl/internal/config"
	apperrors "cohortetl/internal/errors"
	"cohortetl/internal/files"
	"cohortetl/pkg/contracts/domain"
)

// DefaultConcurrency bounds the number of source files read at once
const DefaultConcurrency = 4

// Loader reads the raw sources of one or more cohorts into RawRecords.
// It performs no normalization; every value is passed on as the trimmed cell text.
type Loader struct {
	fs          afero.Fs
	cfg         *config.Config
	discovery   *files.Discovery
	weekColumn  *regexp.Regexp
	concurrency int
	logger      *slog.Logger
}

// NewLoader creates a loader reading through fs
func NewLoader(fs afero.Fs, cfg *config.Config, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		fs:          fs,
		cfg:         cfg,
		discovery:   files.NewDiscovery(fs),
		weekColumn:  regexp.MustCompile(cfg.Assessment.WeekColumnPattern),
		concurrency: DefaultConcurrency,
		logger:      logger.With(slog.String("component", "source_loader")),
	}
}

// WithConcurrency sets the maximum number of sources read in parallel
func (l *Loader) WithConcurrency(n int) *Loader {
	if n > 0 {
		l.concurrency = n
	}
	return l
}

// Load reads every source configured for a single cohort
func (l *Loader) Load(ctx context.Context, cohort config.CohortConfig) (*domain.Batch, error) {
	return l.LoadAll(ctx, []config.CohortConfig{cohort})
}

type loadTask struct {
	cohort config.CohortConfig
	source string
	read   func(ctx context.Context, cohort config.CohortConfig) (*domain.Batch, error)
}

type loadResult struct {
	batch *domain.Batch
	err   error
}

// LoadAll reads the sources of all cohorts concurrently and joins the results.
// Records are merged in cohort order, then attendance, assessment,
// participation and status, so "later-loaded" is well defined regardless of
// scheduling. Structural problems in any source are collected and returned
// together; the batch is nil when any occurred.
func (l *Loader) LoadAll(ctx context.Context, cohorts []config.CohortConfig) (*domain.Batch, error) {
	var tasks []loadTask
	for _, c := range cohorts {
		if c.AttendanceDir != "" {
			tasks = append(tasks, loadTask{cohort: c, source: "attendance", read: l.loadAttendance})
		}
		if c.AssessmentFile != "" {
			tasks = append(tasks, loadTask{cohort: c, source: "assessment", read: l.loadAssessments})
		}
		if c.ParticipationFile != "" {
			tasks = append(tasks, loadTask{cohort: c, source: "participation", read: l.loadParticipation})
		}
		if c.StatusFile != "" {
			tasks = append(tasks, loadTask{cohort: c, source: "status", read: l.loadStatus})
		}
	}

	results := make([]loadResult, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			batch, err := task.read(gctx, task.cohort)
			results[i] = loadResult{batch: batch, err: err}
			if err != nil {
				l.logger.Error("Source failed to load",
					slog.String("cohort", task.cohort.Name),
					slog.String("source", task.source),
					slog.String("error", err.Error()))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var errs *multierror.Error
	batch := domain.NewBatch()
	for _, r := range results {
		if r.err != nil {
			errs = multierror.Append(errs, r.err)
			continue
		}
		batch.Merge(r.batch)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	for _, kind := range domain.AllSourceKinds {
		l.logger.Info("Loaded source records",
			slog.String("source_kind", string(kind)),
			slog.Int("rows", len(batch.Kind(kind))))
	}
	return batch, nil
}

// loadAttendance reads every CSV under the cohort's attendance directory.
// All unreadable files are reported, not just the first.
func (l *Loader) loadAttendance(ctx context.Context, cohort config.CohortConfig) (*domain.Batch, error) {
	found, err := l.discovery.FindFiles(cohort.AttendanceDir, l.cfg.Attendance.FilePattern)
	if err != nil {
		return nil, apperrors.NewStructuralError("attendance directory unreadable", err).
			WithContext("cohort", cohort.Name)
	}
	if len(found) == 0 {
		l.logger.Warn("No attendance files found",
			slog.String("cohort", cohort.Name),
			slog.String("dir", cohort.AttendanceDir))
	}

	cols := l.cfg.Attendance
	batch := domain.NewBatch()
	var errs *multierror.Error
	for _, fi := range found {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := afero.ReadFile(l.fs, fi.Path)
		if err != nil {
			errs = multierror.Append(errs, apperrors.NewStructuralError("attendance file unreadable", err).
				WithContext("path", fi.Path))
			continue
		}
		t, err := parseCSV(data, fi.Path, l.logger)
		if err != nil {
			errs = multierror.Append(errs, apperrors.NewStructuralError(
				fmt.Sprintf("attendance file %s unreadable", fi.Path), err))
			continue
		}
		if len(t.headers) == 0 {
			l.logger.Warn("Empty attendance file", slog.String("path", fi.Path))
			continue
		}
		if !t.hasColumn(cols.DurationColumns...) {
			errs = multierror.Append(errs, apperrors.MissingColumnError(fi.Path, "", cols.DurationColumns[0]))
			continue
		}
		if !t.hasColumn(cols.NameColumns...) && !t.hasColumn(cols.EmailColumns...) {
			errs = multierror.Append(errs, apperrors.MissingColumnError(fi.Path, "", cols.NameColumns[0]))
			continue
		}
		for _, row := range t.rows {
			batch.Add(domain.SourceAttendance, domain.RawRecord{
				SourceKind: domain.SourceAttendance,
				Cohort:     cohort.Name,
				Track:      cohort.DefaultTrack,
				Fields:     row.fields,
				OriginPath: fi.Path,
				Root:       cohort.AttendanceDir,
				Row:        row.line,
			})
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return batch, nil
}

// loadAssessments reads the lab and quiz sheets of the cohort's workbook.
// When neither configured sheet exists the first sheet is read as labs;
// the transformer still honours an explicit lab/quiz suffix on each column.
func (l *Loader) loadAssessments(ctx context.Context, cohort config.CohortConfig) (*domain.Batch, error) {
	wb, err := l.open(cohort.AssessmentFile, cohort.Name)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	cols := l.cfg.Assessment
	sheets := []struct {
		name string
		kind domain.SourceKind
	}{
		{wb.sheet(cols.LabSheet), domain.SourceLab},
		{wb.sheet(cols.QuizSheet), domain.SourceQuiz},
	}
	if sheets[0].name == "" && sheets[1].name == "" {
		sheets = sheets[:1]
		sheets[0].name = wb.firstSheet()
	}

	batch := domain.NewBatch()
	var errs *multierror.Error
	for _, s := range sheets {
		if s.name == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t, err := wb.readSheet(s.name)
		if err != nil {
			errs = multierror.Append(errs, apperrors.NewStructuralError("assessment sheet unreadable", err).
				WithContext("path", wb.path))
			continue
		}
		if len(t.headers) == 0 {
			l.logger.Warn("Empty assessment sheet",
				slog.String("path", wb.path),
				slog.String("sheet", s.name))
			continue
		}
		if !t.hasColumn(cols.EmailColumns...) && !t.hasColumn(cols.NameColumns...) {
			errs = multierror.Append(errs, apperrors.MissingColumnError(wb.path, s.name, firstOr(cols.EmailColumns, "email")))
			continue
		}
		if !l.hasWeekColumn(t) {
			errs = multierror.Append(errs, apperrors.MissingColumnError(wb.path, s.name, "week<N>"))
			continue
		}
		l.addRows(batch, s.kind, cohort, wb.path, s.name, t)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return batch, nil
}

// loadParticipation reads the participation sheet
func (l *Loader) loadParticipation(ctx context.Context, cohort config.CohortConfig) (*domain.Batch, error) {
	cols := l.cfg.Participation
	return l.loadSheet(ctx, cohort, cohort.ParticipationFile, cols.Sheet, domain.SourceParticipation,
		[][]string{cols.DateColumns, cols.ParticipantColumns})
}

// loadStatus reads the learner status sheet
func (l *Loader) loadStatus(ctx context.Context, cohort config.CohortConfig) (*domain.Batch, error) {
	cols := l.cfg.Status
	// Either an email or a name column identifies the learner
	identifying := append(append([]string{}, cols.EmailColumns...), cols.NameColumns...)
	return l.loadSheet(ctx, cohort, cohort.StatusFile, cols.Sheet, domain.SourceStatus,
		[][]string{identifying})
}

// loadSheet reads one sheet (the named one, or the first) and checks that each
// group of required column aliases is present
func (l *Loader) loadSheet(ctx context.Context, cohort config.CohortConfig, path, sheetName string,
	kind domain.SourceKind, required [][]string) (*domain.Batch, error) {
	wb, err := l.open(path, cohort.Name)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	sheet := wb.firstSheet()
	if sheetName != "" {
		if sheet = wb.sheet(sheetName); sheet == "" {
			return nil, apperrors.NewStructuralError(
				fmt.Sprintf("sheet %q not found in %s", sheetName, path), nil).
				WithContext("cohort", cohort.Name)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t, err := wb.readSheet(sheet)
	if err != nil {
		return nil, apperrors.NewStructuralError(fmt.Sprintf("%s sheet unreadable", kind), err).
			WithContext("path", path)
	}

	batch := domain.NewBatch()
	if len(t.headers) == 0 {
		l.logger.Warn("Empty sheet",
			slog.String("path", path),
			slog.String("sheet", sheet))
		return batch, nil
	}

	var errs *multierror.Error
	for _, aliases := range required {
		if !t.hasColumn(aliases...) {
			errs = multierror.Append(errs, apperrors.MissingColumnError(path, sheet, firstOr(aliases, "")))
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	l.addRows(batch, kind, cohort, path, sheet, t)
	return batch, nil
}

func (l *Loader) open(path, cohort string) (*workbook, error) {
	wb, err := openWorkbook(l.fs, path)
	if err != nil {
		return nil, apperrors.NewStructuralError(fmt.Sprintf("source %s unreadable", path), err).
			WithContext("cohort", cohort)
	}
	return wb, nil
}

func (l *Loader) addRows(batch *domain.Batch, kind domain.SourceKind, cohort config.CohortConfig, path, sheet string, t *table) {
	for _, row := range t.rows {
		batch.Add(kind, domain.RawRecord{
			SourceKind: kind,
			Cohort:     cohort.Name,
			Track:      cohort.DefaultTrack,
			Fields:     row.fields,
			OriginPath: path,
			Sheet:      sheet,
			Row:        row.line,
		})
	}
	l.logger.Debug("Read sheet",
		slog.String("path", path),
		slog.String("sheet", sheet),
		slog.String("source_kind", string(kind)),
		slog.Int("rows", len(t.rows)))
}

func (l *Loader) hasWeekColumn(t *table) bool {
	for _, h := range t.headers {
		if l.weekColumn.MatchString(h) {
			return true
		}
	}
	return false
}

func firstOr(values []string, fallback string) string {
	if len(values) > 0 {
		return values[0]
	}
	return fallback
}
