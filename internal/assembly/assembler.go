package assembly

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"cohortetl/pkg/contracts/domain"
)

// Tables are the dimensions and facts of a run before referential checks
type Tables struct {
	Learners      []domain.LearnerDim
	Dates         []domain.CalendarDate
	Weeks         []domain.WeekDim
	Attendance    []domain.AttendanceFact
	Assessments   []domain.AssessmentFact
	Participation []domain.ParticipationFact
	// Rejected holds the rows already rejected or flagged by earlier stages
	Rejected []domain.RejectedRow
}

// Assembler enforces referential integrity between facts and dimensions
type Assembler struct {
	logger *slog.Logger
}

// NewAssembler creates an assembler
func NewAssembler(logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{logger: logger.With(slog.String("component", "fact_assembler"))}
}

// Assemble returns a star schema in which every fact's learner key, date and
// week key exist in the dimensions. Facts that fail a check are removed and
// reported as orphan_key; the returned slice holds only those new rejections.
// Orphan participation facts were already reported when their token failed
// to resolve, so they are dropped without a second entry.
func (a *Assembler) Assemble(t Tables) (*domain.StarSchema, []domain.RejectedRow) {
	learners := lo.SliceToMap(t.Learners, func(l domain.LearnerDim) (string, bool) { return l.LearnerKey, true })
	dates := lo.SliceToMap(t.Dates, func(d domain.CalendarDate) (string, bool) {
		return d.Date.Format(domain.DateLayout), true
	})
	weeks := lo.SliceToMap(t.Weeks, func(w domain.WeekDim) (string, bool) { return w.WeekKey, true })

	var orphans []domain.RejectedRow
	orphan := func(table string, ref domain.SourceRef, learnerKey, detail string) {
		r := domain.NewRejectedRow(domain.ReasonOrphanKey, ref, learnerKey, detail)
		r.Table = table
		orphans = append(orphans, r)
	}
	hasDate := func(d time.Time) bool { return dates[d.Format(domain.DateLayout)] }

	schema := &domain.StarSchema{
		Learners: t.Learners,
		Dates:    t.Dates,
		Weeks:    t.Weeks,
	}

	schema.Attendance = lo.Filter(t.Attendance, func(f domain.AttendanceFact, _ int) bool {
		switch {
		case !learners[f.LearnerKey]:
			orphan(domain.TableFactAttendance, f.Source, f.LearnerKey, "learner_key not in dim_learner")
		case !hasDate(f.Date):
			orphan(domain.TableFactAttendance, f.Source, f.LearnerKey, fmt.Sprintf("date %s not in dim_date", f.Date.Format(domain.DateLayout)))
		case !weeks[f.WeekKey]:
			orphan(domain.TableFactAttendance, f.Source, f.LearnerKey, fmt.Sprintf("week %d not in dim_week", f.WeekNumber))
		default:
			return true
		}
		return false
	})

	schema.Assessments = lo.Filter(t.Assessments, func(f domain.AssessmentFact, _ int) bool {
		switch {
		case !learners[f.LearnerKey]:
			orphan(domain.TableFactAssessment, f.Source, f.LearnerKey, "learner_key not in dim_learner")
		case !weeks[f.WeekKey]:
			orphan(domain.TableFactAssessment, f.Source, f.LearnerKey, fmt.Sprintf("week %d not in dim_week", f.WeekNumber))
		default:
			return true
		}
		return false
	})

	silent := 0
	schema.Participation = lo.Filter(t.Participation, func(f domain.ParticipationFact, _ int) bool {
		switch {
		case f.IsOrphan():
			silent++
		case !learners[f.LearnerKey]:
			orphan(domain.TableFactParticipation, f.Source, f.LearnerKey, "learner_key not in dim_learner")
		case !hasDate(f.Date):
			orphan(domain.TableFactParticipation, f.Source, f.LearnerKey, fmt.Sprintf("date %s not in dim_date", f.Date.Format(domain.DateLayout)))
		default:
			return true
		}
		return false
	})

	schema.Rejected = make([]domain.RejectedRow, 0, len(t.Rejected)+len(orphans))
	schema.Rejected = append(schema.Rejected, t.Rejected...)
	schema.Rejected = append(schema.Rejected, orphans...)

	if len(orphans) > 0 {
		a.logger.Warn("Facts removed for dangling references", slog.Int("orphan_key", len(orphans)))
	}
	a.logger.Info("Star schema assembled",
		slog.Int("learners", len(schema.Learners)),
		slog.Int("attendance", len(schema.Attendance)),
		slog.Int("assessments", len(schema.Assessments)),
		slog.Int("participation", len(schema.Participation)),
		slog.Int("unresolved_participation", silent),
		slog.Int("rejected", len(schema.Rejected)))

	return schema, orphans
}

// Dangling counts fact references that do not resolve to a dimension row.
// It is zero for any schema returned by Assemble.
func Dangling(s *domain.StarSchema) int {
	learners := lo.SliceToMap(s.Learners, func(l domain.LearnerDim) (string, bool) { return l.LearnerKey, true })
	dates := lo.SliceToMap(s.Dates, func(d domain.CalendarDate) (string, bool) {
		return d.Date.Format(domain.DateLayout), true
	})
	weeks := lo.SliceToMap(s.Weeks, func(w domain.WeekDim) (string, bool) { return w.WeekKey, true })

	n := 0
	for _, f := range s.Attendance {
		if !learners[f.LearnerKey] || !dates[f.Date.Format(domain.DateLayout)] || !weeks[f.WeekKey] {
			n++
		}
	}
	for _, f := range s.Assessments {
		if !learners[f.LearnerKey] || !weeks[f.WeekKey] {
			n++
		}
	}
	for _, f := range s.Participation {
		if !learners[f.LearnerKey] || !dates[f.Date.Format(domain.DateLayout)] {
			n++
		}
	}
	return n
}
