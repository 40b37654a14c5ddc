package dimensions

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/samber/lo"

	"cohortetl/internal/config"
	"cohortetl/internal/normalize"
	"cohortetl/internal/transform"
	"cohortetl/pkg/contracts/domain"
)

// Builder produces the date, week and learner dimensions
type Builder struct {
	programStart time.Time
	holidays     map[time.Time]bool
	logger       *slog.Logger
}

// NewBuilder creates a dimension builder from a validated configuration
func NewBuilder(cfg *config.Config, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Builder{
		holidays: make(map[time.Time]bool),
		logger:   logger.With(slog.String("component", "dimension_builder")),
	}
	if cfg.Calendar.ProgramStart != "" {
		if t, err := time.Parse(config.DateLayout, cfg.Calendar.ProgramStart); err == nil {
			b.programStart = t
		}
	}
	for _, h := range cfg.Calendar.Holidays {
		if t, err := time.Parse(config.DateLayout, h); err == nil {
			b.holidays[t] = true
		}
	}
	return b
}

// Dates returns the date of every fact that can be published. Orphan
// participation rows are left out since assembly drops them.
func Dates(attendance []domain.AttendanceFact, participation []domain.ParticipationFact) []time.Time {
	dates := make([]time.Time, 0, len(attendance)+len(participation))
	for _, f := range attendance {
		dates = append(dates, f.Date)
	}
	for _, f := range participation {
		if !f.IsOrphan() {
			dates = append(dates, f.Date)
		}
	}
	return dates
}

// BuildDates returns one row per calendar day from the earliest to the latest
// of dates inclusive, with no gaps. It returns nil when dates is empty.
func (b *Builder) BuildDates(dates []time.Time) []domain.CalendarDate {
	if len(dates) == 0 {
		return nil
	}
	first := normalize.DateOnly(lo.MinBy(dates, func(a, b time.Time) bool { return a.Before(b) }))
	last := normalize.DateOnly(lo.MaxBy(dates, func(a, b time.Time) bool { return a.After(b) }))

	start := b.programStart
	if start.IsZero() {
		start = monday(first)
	}

	var out []domain.CalendarDate
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		_, isoWeek := d.ISOWeek()
		weekend := d.Weekday() == time.Saturday || d.Weekday() == time.Sunday
		out = append(out, domain.CalendarDate{
			Date:          d,
			DateKey:       d.Year()*10000 + int(d.Month())*100 + d.Day(),
			Year:          d.Year(),
			Month:         int(d.Month()),
			MonthName:     d.Month().String(),
			Day:           d.Day(),
			DayName:       d.Weekday().String(),
			DayOfWeek:     isoWeekday(d),
			WeekOfYear:    isoWeek,
			WeekNumber:    programWeek(start, d),
			IsWeekend:     weekend,
			IsBusinessDay: !weekend && !b.holidays[d],
		})
	}

	b.logger.Debug("Date dimension built",
		slog.String("from", first.Format(domain.DateLayout)),
		slog.String("to", last.Format(domain.DateLayout)),
		slog.Int("days", len(out)))
	return out
}

// BuildWeeks returns one row per distinct (cohort, track, week) referenced by
// a fact. Start and end dates come from the attendance dates of that week and
// stay zero for weeks that only have assessments.
func (b *Builder) BuildWeeks(attendance []domain.AttendanceFact, assessments []domain.AssessmentFact) []domain.WeekDim {
	weeks := make(map[string]*domain.WeekDim)

	add := func(cohort, track string, week int) *domain.WeekDim {
		key := transform.WeekKey(cohort, track, week)
		w, ok := weeks[key]
		if !ok {
			w = &domain.WeekDim{
				WeekKey:    key,
				WeekNumber: week,
				Cohort:     cohort,
				Track:      track,
				Label:      fmt.Sprintf("Week %d", week),
			}
			weeks[key] = w
		}
		return w
	}

	for _, f := range attendance {
		w := add(f.Cohort, f.Track, f.WeekNumber)
		if w.StartDate.IsZero() || f.Date.Before(w.StartDate) {
			w.StartDate = f.Date
		}
		if f.Date.After(w.EndDate) {
			w.EndDate = f.Date
		}
	}
	for _, f := range assessments {
		add(f.Cohort, f.Track, f.WeekNumber)
	}

	out := make([]domain.WeekDim, 0, len(weeks))
	for _, w := range weeks {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Cohort != b.Cohort {
			return a.Cohort < b.Cohort
		}
		if a.Track != b.Track {
			return a.Track < b.Track
		}
		return a.WeekNumber < b.WeekNumber
	})
	return out
}

// BuildLearners merges identities and statuses into one row per learner key.
// When a key enrolled in several cohorts, cohort and track come from the
// latest enrollment (by cohort enrollment date, then cohort name); an
// enrollment with no known date counts as the earliest.
func (b *Builder) BuildLearners(identities []domain.LearnerIdentity, statuses map[string]domain.LearnerStatus) []domain.LearnerDim {
	byKey := lo.GroupBy(identities, func(id domain.LearnerIdentity) string { return id.LearnerKey })

	keys := lo.Keys(byKey)
	sort.Strings(keys)

	out := make([]domain.LearnerDim, 0, len(keys))
	for _, key := range keys {
		ids := byKey[key]
		sort.SliceStable(ids, func(i, j int) bool {
			if !ids[i].EnrollmentDate.Equal(ids[j].EnrollmentDate) {
				return ids[i].EnrollmentDate.Before(ids[j].EnrollmentDate)
			}
			return ids[i].Cohort < ids[j].Cohort
		})
		latest := ids[len(ids)-1]
		first := ids[0]

		row := domain.LearnerDim{
			LearnerKey:      key,
			Email:           latest.Email,
			DisplayName:     first.DisplayName,
			Cohort:          latest.Cohort,
			Track:           latest.Track,
			EnrollmentDate:  first.EnrollmentDate,
			CurrentStatus:   domain.StatusUnknown,
			UnresolvedEmail: latest.UnresolvedEmail,
		}
		if row.DisplayName == "" {
			row.DisplayName = latest.DisplayName
		}

		if s, ok := statuses[key]; ok {
			row.Graduated = s.Graduated
			row.Certified = s.Certified
			row.CurrentStatus = s.CurrentStatus
			row.GraduationStatus = s.GraduationStatus
			row.CertificationStatus = s.CertificationStatus
			if !s.EnrollmentDate.IsZero() {
				row.EnrollmentDate = s.EnrollmentDate
			}
			if len(ids) == 1 && s.Track != "" {
				row.Track = s.Track
			}
		}
		out = append(out, row)
	}

	b.logger.Debug("Learner dimension built",
		slog.Int("identities", len(identities)),
		slog.Int("learners", len(out)))
	return out
}

// monday returns the Monday on or before d
func monday(d time.Time) time.Time {
	return d.AddDate(0, 0, -(isoWeekday(d) - 1))
}

// isoWeekday numbers Monday 1 through Sunday 7
func isoWeekday(d time.Time) int {
	if d.Weekday() == time.Sunday {
		return 7
	}
	return int(d.Weekday())
}

// programWeek is the 1-based program week of d; days before start are week 0 or less
func programWeek(start, d time.Time) int {
	days := int(d.Sub(start).Hours() / 24)
	if days < 0 {
		return -((-days - 1) / 7)
	}
	return days/7 + 1
}
