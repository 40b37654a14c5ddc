package transform

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"cohortetl/internal/config"
	"cohortetl/internal/identity"
	"cohortetl/internal/normalize"
	"cohortetl/pkg/contracts/domain"
)

// AttendanceResult is the output of the attendance transformer
type AttendanceResult struct {
	Facts    []domain.AttendanceFact
	Rejected []domain.RejectedRow
	// Collapsed counts raw rows merged into another row's fact
	Collapsed int
}

// AttendanceTransformer turns attendance log rows into attendance facts
type AttendanceTransformer struct {
	cfg          config.AttendanceConfig
	paths        *normalize.PathConvention
	fileDates    *normalize.DateParser
	cellDates    *normalize.DateParser
	programStart time.Time
	cols         identity.Columns
	logger       *slog.Logger
}

// NewAttendanceTransformer creates the transformer from a validated configuration
func NewAttendanceTransformer(cfg *config.Config, logger *slog.Logger) *AttendanceTransformer {
	if logger == nil {
		logger = slog.Default()
	}
	t := &AttendanceTransformer{
		cfg:         cfg.Attendance,
		paths:       normalize.NewPathConvention(cfg.Attendance.PathPattern),
		fileDates:   normalize.NewDateParser(cfg.Attendance.FilenameLayouts),
		cellDates:   normalize.NewDateParser(cfg.Calendar.DateLayouts),
		cols:        identity.ColumnsFor(cfg, domain.SourceAttendance),
		logger:      logger.With(slog.String("component", "attendance_transformer")),
	}
	if cfg.Calendar.ProgramStart != "" {
		t.programStart, _ = time.Parse(config.DateLayout, cfg.Calendar.ProgramStart)
	}
	return t
}

// attendanceKey is the uniqueness key of fact_attendance; session is the track
type attendanceKey struct {
	learnerKey string
	date       string
	session    string
}

// originTotal accumulates the rows of one key from one origin file
type originTotal struct {
	path    string
	rows    int
	fact    domain.AttendanceFact
	minutes float64
}

// Transform converts attendance rows into one fact per (learner, date, session).
//
// Rows of the same key from one file are rejoins of the same meeting and
// their durations are summed. When several files carry the same key the
// file with the largest total wins (ties go to the lowest path), so merging
// a re-exported log never double counts.
func (t *AttendanceTransformer) Transform(records []domain.RawRecord, dir *identity.Directory) AttendanceResult {
	var result AttendanceResult
	groups := make(map[attendanceKey][]*originTotal)
	var order []attendanceKey

	for _, rec := range records {
		learner, rej := dir.Identify(rec, t.cols)
		if rej != nil {
			rej.Table = domain.TableFactAttendance
			result.Rejected = append(result.Rejected, *rej)
			continue
		}

		date, err := t.date(rec)
		if err != nil {
			r := domain.NewRejectedRow(domain.ReasonMissingDate, rec.Ref(), learner.DisplayName, err.Error())
			r.Table = domain.TableFactAttendance
			result.Rejected = append(result.Rejected, r)
			continue
		}

		minutes, err := normalize.DurationMinutes(rec.Get(t.cfg.DurationColumns...))
		if err != nil {
			r := domain.NewRejectedRow(domain.ReasonInvalidValue, rec.Ref(), learner.DisplayName, err.Error())
			r.Table = domain.TableFactAttendance
			result.Rejected = append(result.Rejected, r)
			continue
		}

		week, track, err := t.weekAndTrack(rec, date)
		if err != nil {
			r := domain.NewRejectedRow(domain.ReasonInvalidValue, rec.Ref(), learner.DisplayName, err.Error())
			r.Table = domain.TableFactAttendance
			result.Rejected = append(result.Rejected, r)
			continue
		}

		key := attendanceKey{learner.LearnerKey, date.Format(domain.DateLayout), track}
		totals, seen := groups[key]
		if !seen {
			order = append(order, key)
		}

		var total *originTotal
		for _, o := range totals {
			if o.path == rec.OriginPath {
				total = o
				break
			}
		}
		if total == nil {
			total = &originTotal{
				path: rec.OriginPath,
				fact: domain.AttendanceFact{
					AttendanceID: AttendanceID(learner.LearnerKey, date, track),
					LearnerKey:   learner.LearnerKey,
					Cohort:       rec.Cohort,
					Track:        track,
					Date:         date,
					WeekNumber:   week,
					WeekKey:      WeekKey(rec.Cohort, track, week),
					JoinTime:     rec.Get(t.cfg.JoinColumns...),
					Source:       rec.Ref(),
				},
			}
			groups[key] = append(groups[key], total)
		}
		total.rows++
		total.minutes += minutes
		if leave := rec.Get(t.cfg.LeaveColumns...); leave != "" {
			total.fact.LeaveTime = leave
		}
	}

	for _, key := range order {
		totals := groups[key]
		best := totals[0]
		rows := 0
		for _, o := range totals {
			rows += o.rows
			if o.minutes > best.minutes || (o.minutes == best.minutes && o.path < best.path) {
				best = o
			}
		}
		if rows > 1 {
			result.Collapsed += rows - 1
			t.logger.Debug("duplicate_collapsed",
				slog.String("learner_key", key.learnerKey),
				slog.String("date", key.date),
				slog.String("session", key.session),
				slog.Int("rows", rows),
				slog.Int("files", len(totals)))
		}
		fact := best.fact
		fact.DurationMinutes = best.minutes
		fact.Attended = best.minutes >= t.cfg.ThresholdMinutes
		result.Facts = append(result.Facts, fact)
	}

	sort.Slice(result.Facts, func(i, j int) bool {
		a, b := result.Facts[i], result.Facts[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Cohort != b.Cohort {
			return a.Cohort < b.Cohort
		}
		if a.Track != b.Track {
			return a.Track < b.Track
		}
		return a.LearnerKey < b.LearnerKey
	})

	t.logger.Info("Attendance transformed",
		slog.Int("rows", len(records)),
		slog.Int("facts", len(result.Facts)),
		slog.Int("collapsed", result.Collapsed),
		slog.Int("rejected", len(result.Rejected)))

	return result
}

// date returns the session date: from the file name first, then a date
// column, then the join timestamp
func (t *AttendanceTransformer) date(rec domain.RawRecord) (time.Time, error) {
	if d, err := t.fileDates.FromFilename(rec.OriginPath); err == nil {
		return d, nil
	}
	if v := rec.Get(t.cfg.DateColumns...); v != "" {
		if d, err := t.cellDates.Parse(v); err == nil {
			return d, nil
		}
	}
	if v := rec.Get(t.cfg.JoinColumns...); v != "" {
		if d, err := t.cellDates.Parse(v); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("no parsable date in file name, date or join time")
}

// weekAndTrack reads the week number and track from the file's path below the
// attendance directory. Without a week in the path the week is counted from
// the configured program start.
func (t *AttendanceTransformer) weekAndTrack(rec domain.RawRecord, date time.Time) (int, string, error) {
	track, week, err := t.paths.Parse(rec.RelPath())
	if err != nil {
		return 0, "", err
	}
	if track == "" {
		track = rec.Track
	}

	if week == 0 && !t.programStart.IsZero() && !date.Before(t.programStart) {
		week = int(date.Sub(t.programStart).Hours()/24)/7 + 1
	}
	if week <= 0 {
		return 0, "", fmt.Errorf("no week number in path %q", rec.RelPath())
	}
	return week, track, nil
}
