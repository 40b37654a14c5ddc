package exporter

import (
	"cohortetl/pkg/contracts/domain"
)

// Table is one published table rendered as CSV cells
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// FileName returns the CSV file name of the table
func (t Table) FileName() string {
	return t.Name + ".csv"
}

// Tables renders every table of the schema, the rejected-rows report last
func Tables(s *domain.StarSchema) []Table {
	return []Table{
		learnerTable(s.Learners),
		dateTable(s.Dates),
		weekTable(s.Weeks),
		attendanceTable(s.Attendance),
		assessmentTable(s.Assessments),
		participationTable(s.Participation),
		rejectedTable(s.Rejected),
	}
}

func learnerTable(rows []domain.LearnerDim) Table {
	t := Table{
		Name: domain.TableDimLearner,
		Headers: []string{
			"learner_key", "email", "display_name", "cohort", "track", "enrollment_date",
			"graduated", "certified", "current_status", "graduation_status",
			"certification_status", "unresolved_email",
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.LearnerKey, r.Email, r.DisplayName, r.Cohort, r.Track, formatDate(r.EnrollmentDate),
			formatBool(r.Graduated), formatBool(r.Certified), string(r.CurrentStatus), r.GraduationStatus,
			r.CertificationStatus, formatBool(r.UnresolvedEmail),
		})
	}
	return t
}

func dateTable(rows []domain.CalendarDate) Table {
	t := Table{
		Name: domain.TableDimDate,
		Headers: []string{
			"date", "date_key", "year", "month", "month_name", "day", "day_name",
			"day_of_week", "week_of_year", "week_number", "is_weekend", "is_business_day",
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			formatDate(r.Date), formatInt(r.DateKey), formatInt(r.Year), formatInt(r.Month), r.MonthName,
			formatInt(r.Day), r.DayName, formatInt(r.DayOfWeek), formatInt(r.WeekOfYear),
			formatInt(r.WeekNumber), formatBool(r.IsWeekend), formatBool(r.IsBusinessDay),
		})
	}
	return t
}

func weekTable(rows []domain.WeekDim) Table {
	t := Table{
		Name:    domain.TableDimWeek,
		Headers: []string{"week_key", "week_number", "cohort", "track", "start_date", "end_date", "label"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.WeekKey, formatInt(r.WeekNumber), r.Cohort, r.Track,
			formatDate(r.StartDate), formatDate(r.EndDate), r.Label,
		})
	}
	return t
}

func attendanceTable(rows []domain.AttendanceFact) Table {
	t := Table{
		Name: domain.TableFactAttendance,
		Headers: []string{
			"attendance_id", "learner_key", "cohort", "track", "date", "week_number", "week_key",
			"duration_minutes", "duration_hours", "attended", "join_time", "leave_time",
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.AttendanceID, r.LearnerKey, r.Cohort, r.Track, formatDate(r.Date), formatInt(r.WeekNumber), r.WeekKey,
			formatFloat(r.DurationMinutes), formatFloat(r.DurationHours()), formatBool(r.Attended), r.JoinTime, r.LeaveTime,
		})
	}
	return t
}

func assessmentTable(rows []domain.AssessmentFact) Table {
	t := Table{
		Name:    domain.TableFactAssessment,
		Headers: []string{"assessment_id", "learner_key", "cohort", "track", "week_number", "week_key", "type", "score"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.AssessmentID, r.LearnerKey, r.Cohort, r.Track, formatInt(r.WeekNumber), r.WeekKey,
			string(r.Type), formatFloat(r.Score),
		})
	}
	return t
}

func participationTable(rows []domain.ParticipationFact) Table {
	t := Table{
		Name:    domain.TableFactParticipation,
		Headers: []string{"participation_id", "learner_key", "cohort", "date", "learner_name"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.ParticipationID, r.LearnerKey, r.Cohort, formatDate(r.Date), r.LearnerName,
		})
	}
	return t
}

func rejectedTable(rows []domain.RejectedRow) Table {
	t := Table{
		Name:    domain.TableRejectedRows,
		Headers: []string{"reason", "table", "source_kind", "cohort", "origin_path", "row", "learner", "detail", "dropped"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			string(r.Reason), r.Table, string(r.SourceKind), r.Cohort, r.OriginPath,
			formatInt(r.Row), r.Learner, r.Detail, formatBool(r.Dropped),
		})
	}
	return t
}
