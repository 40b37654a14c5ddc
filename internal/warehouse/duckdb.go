package warehouse

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/marcboeker/go-duckdb" // registers the duckdb driver

	"cohortetl/pkg/contracts/domain"
)

// RunsTable records every run published into the warehouse
const RunsTable = "etl_runs"

// DuckDB mirrors the star schema into a DuckDB database file
type DuckDB struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// Open opens or creates the DuckDB database at path
func Open(path string, logger *slog.Logger) (*DuckDB, error) {
	db, err := sqlx.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb at %s: %w", path, err)
	}
	return New(db, logger), nil
}

// New wraps an existing connection
func New(db *sqlx.DB, logger *slog.Logger) *DuckDB {
	if logger == nil {
		logger = slog.Default()
	}
	return &DuckDB{db: db, logger: logger.With(slog.String("component", "warehouse"))}
}

// Close closes the database
func (w *DuckDB) Close() error {
	return w.db.Close()
}

// Publish replaces every table inside one transaction, so readers see either
// the previous run or this one
func (w *DuckDB) Publish(ctx context.Context, runID string, s *domain.StarSchema) (err error) {
	tx, err := w.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				w.logger.Warn("Rollback failed", slog.String("error", rerr.Error()))
			}
		}
	}()

	for _, t := range specs(s) {
		if err = w.replace(ctx, tx, t); err != nil {
			return err
		}
	}

	if _, err = tx.ExecContext(ctx, fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (run_id VARCHAR PRIMARY KEY, published_at TIMESTAMP)", RunsTable)); err != nil {
		return fmt.Errorf("failed to create %s: %w", RunsTable, err)
	}
	if _, err = tx.ExecContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (run_id, published_at) VALUES (?, ?)", RunsTable), runID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	w.logger.InfoContext(ctx, "Warehouse updated",
		slog.String("run_id", runID),
		slog.Any("tables", s.Counts()))
	return nil
}

// replace recreates one table and inserts its rows
func (w *DuckDB) replace(ctx context.Context, tx *sqlx.Tx, t tableSpec) error {
	if _, err := tx.ExecContext(ctx, t.createSQL()); err != nil {
		return fmt.Errorf("failed to create %s: %w", t.name, err)
	}
	if len(t.rows) == 0 {
		return nil
	}

	stmt, err := tx.PreparexContext(ctx, t.insertSQL())
	if err != nil {
		return fmt.Errorf("failed to prepare insert into %s: %w", t.name, err)
	}
	defer stmt.Close()

	for i, row := range t.rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("failed to insert row %d into %s: %w", i, t.name, err)
		}
	}
	return nil
}

type column struct {
	name string
	typ  string
}

type tableSpec struct {
	name    string
	columns []column
	rows    [][]any
}

func (t tableSpec) createSQL() string {
	defs := make([]string, len(t.columns))
	for i, c := range t.columns {
		defs[i] = c.name + " " + c.typ
	}
	return fmt.Sprintf("CREATE OR REPLACE TABLE %s (%s)", t.name, strings.Join(defs, ", "))
}

func (t tableSpec) insertSQL() string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(t.columns)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.name, strings.Join(names, ", "), marks)
}

// date maps the zero time to NULL
func date(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func specs(s *domain.StarSchema) []tableSpec {
	learners := tableSpec{
		name: domain.TableDimLearner,
		columns: []column{
			{"learner_key", "VARCHAR PRIMARY KEY"}, {"email", "VARCHAR"}, {"display_name", "VARCHAR"},
			{"cohort", "VARCHAR"}, {"track", "VARCHAR"}, {"enrollment_date", "DATE"},
			{"graduated", "BOOLEAN"}, {"certified", "BOOLEAN"}, {"current_status", "VARCHAR"},
			{"graduation_status", "VARCHAR"}, {"certification_status", "VARCHAR"}, {"unresolved_email", "BOOLEAN"},
		},
	}
	for _, r := range s.Learners {
		learners.rows = append(learners.rows, []any{
			r.LearnerKey, r.Email, r.DisplayName, r.Cohort, r.Track, date(r.EnrollmentDate),
			r.Graduated, r.Certified, string(r.CurrentStatus), r.GraduationStatus, r.CertificationStatus, r.UnresolvedEmail,
		})
	}

	dates := tableSpec{
		name: domain.TableDimDate,
		columns: []column{
			{"date", "DATE PRIMARY KEY"}, {"date_key", "INTEGER"}, {"year", "INTEGER"}, {"month", "INTEGER"},
			{"month_name", "VARCHAR"}, {"day", "INTEGER"}, {"day_name", "VARCHAR"}, {"day_of_week", "INTEGER"},
			{"week_of_year", "INTEGER"}, {"week_number", "INTEGER"}, {"is_weekend", "BOOLEAN"}, {"is_business_day", "BOOLEAN"},
		},
	}
	for _, r := range s.Dates {
		dates.rows = append(dates.rows, []any{
			r.Date, r.DateKey, r.Year, r.Month, r.MonthName, r.Day, r.DayName,
			r.DayOfWeek, r.WeekOfYear, r.WeekNumber, r.IsWeekend, r.IsBusinessDay,
		})
	}

	weeks := tableSpec{
		name: domain.TableDimWeek,
		columns: []column{
			{"week_key", "VARCHAR PRIMARY KEY"}, {"week_number", "INTEGER"}, {"cohort", "VARCHAR"},
			{"track", "VARCHAR"}, {"start_date", "DATE"}, {"end_date", "DATE"}, {"label", "VARCHAR"},
		},
	}
	for _, r := range s.Weeks {
		weeks.rows = append(weeks.rows, []any{
			r.WeekKey, r.WeekNumber, r.Cohort, r.Track, date(r.StartDate), date(r.EndDate), r.Label,
		})
	}

	attendance := tableSpec{
		name: domain.TableFactAttendance,
		columns: []column{
			{"attendance_id", "VARCHAR PRIMARY KEY"}, {"learner_key", "VARCHAR"}, {"cohort", "VARCHAR"},
			{"track", "VARCHAR"}, {"date", "DATE"}, {"week_number", "INTEGER"}, {"week_key", "VARCHAR"},
			{"duration_minutes", "DOUBLE"}, {"duration_hours", "DOUBLE"}, {"attended", "BOOLEAN"},
			{"join_time", "VARCHAR"}, {"leave_time", "VARCHAR"},
		},
	}
	for _, r := range s.Attendance {
		attendance.rows = append(attendance.rows, []any{
			r.AttendanceID, r.LearnerKey, r.Cohort, r.Track, r.Date, r.WeekNumber, r.WeekKey,
			r.DurationMinutes, r.DurationHours(), r.Attended, r.JoinTime, r.LeaveTime,
		})
	}

	assessments := tableSpec{
		name: domain.TableFactAssessment,
		columns: []column{
			{"assessment_id", "VARCHAR PRIMARY KEY"}, {"learner_key", "VARCHAR"}, {"cohort", "VARCHAR"},
			{"track", "VARCHAR"}, {"week_number", "INTEGER"}, {"week_key", "VARCHAR"},
			{"type", "VARCHAR"}, {"score", "DOUBLE"},
		},
	}
	for _, r := range s.Assessments {
		assessments.rows = append(assessments.rows, []any{
			r.AssessmentID, r.LearnerKey, r.Cohort, r.Track, r.WeekNumber, r.WeekKey, string(r.Type), r.Score,
		})
	}

	participation := tableSpec{
		name: domain.TableFactParticipation,
		columns: []column{
			{"participation_id", "VARCHAR PRIMARY KEY"}, {"learner_key", "VARCHAR"}, {"cohort", "VARCHAR"},
			{"date", "DATE"}, {"learner_name", "VARCHAR"},
		},
	}
	for _, r := range s.Participation {
		participation.rows = append(participation.rows, []any{
			r.ParticipationID, r.LearnerKey, r.Cohort, r.Date, r.LearnerName,
		})
	}

	rejected := tableSpec{
		name: domain.TableRejectedRows,
		columns: []column{
			{"reason", "VARCHAR"}, {"table_name", "VARCHAR"}, {"source_kind", "VARCHAR"}, {"cohort", "VARCHAR"},
			{"origin_path", "VARCHAR"}, {"row_number", "INTEGER"}, {"learner", "VARCHAR"},
			{"detail", "VARCHAR"}, {"dropped", "BOOLEAN"},
		},
	}
	for _, r := range s.Rejected {
		rejected.rows = append(rejected.rows, []any{
			string(r.Reason), r.Table, string(r.SourceKind), r.Cohort, r.OriginPath, r.Row, r.Learner, r.Detail, r.Dropped,
		})
	}

	return []tableSpec{learners, dates, weeks, attendance, assessments, participation, rejected}
}
