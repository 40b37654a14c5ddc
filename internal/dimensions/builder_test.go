package dimensions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cohortetl/internal/config"
	"cohortetl/internal/transform"
	"cohortetl/pkg/contracts/domain"
)

func day(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestBuildDates_NoGapsNoDuplicates(t *testing.T) {
	b := NewBuilder(config.Default(), nil)
	dates := b.BuildDates([]time.Time{day("2024-03-04"), day("2024-02-27"), day("2024-03-04"), day("2024-03-01")})

	require.Len(t, dates, 7, "2024-02-27 through 2024-03-04 spans a leap day")
	for i := 1; i < len(dates); i++ {
		assert.Equal(t, dates[i-1].Date.AddDate(0, 0, 1), dates[i].Date)
	}
	assert.Equal(t, day("2024-02-27"), dates[0].Date)
	assert.Equal(t, day("2024-02-29"), dates[2].Date)
	assert.Equal(t, day("2024-03-04"), dates[6].Date)
}

func TestBuildDates_Empty(t *testing.T) {
	assert.Nil(t, NewBuilder(config.Default(), nil).BuildDates(nil))
}

func TestBuildDates_Attributes(t *testing.T) {
	cfg := config.Default()
	cfg.Calendar.Holidays = []string{"2024-08-06"}
	b := NewBuilder(cfg, nil)

	dates := b.BuildDates([]time.Time{day("2024-08-05"), day("2024-08-12")})
	require.Len(t, dates, 8)

	mon := dates[0]
	assert.Equal(t, 20240805, mon.DateKey)
	assert.Equal(t, 2024, mon.Year)
	assert.Equal(t, 8, mon.Month)
	assert.Equal(t, "August", mon.MonthName)
	assert.Equal(t, 5, mon.Day)
	assert.Equal(t, "Monday", mon.DayName)
	assert.Equal(t, 1, mon.DayOfWeek)
	assert.Equal(t, 32, mon.WeekOfYear)
	assert.Equal(t, 1, mon.WeekNumber)
	assert.True(t, mon.IsBusinessDay)
	assert.False(t, mon.IsWeekend)

	holiday := dates[1]
	assert.False(t, holiday.IsWeekend)
	assert.False(t, holiday.IsBusinessDay)

	sun := dates[6]
	assert.Equal(t, 7, sun.DayOfWeek)
	assert.True(t, sun.IsWeekend)
	assert.False(t, sun.IsBusinessDay)
	assert.Equal(t, 1, sun.WeekNumber)

	assert.Equal(t, 2, dates[7].WeekNumber)
}

func TestBuildDates_ProgramStart(t *testing.T) {
	cfg := config.Default()
	cfg.Calendar.ProgramStart = "2024-08-07"
	dates := NewBuilder(cfg, nil).BuildDates([]time.Time{day("2024-08-05"), day("2024-08-14")})

	weeks := make(map[string]int)
	for _, d := range dates {
		weeks[d.Date.Format(domain.DateLayout)] = d.WeekNumber
	}
	assert.Equal(t, 0, weeks["2024-08-05"])
	assert.Equal(t, 1, weeks["2024-08-07"])
	assert.Equal(t, 1, weeks["2024-08-13"])
	assert.Equal(t, 2, weeks["2024-08-14"])
}

func TestDates(t *testing.T) {
	dates := Dates(
		[]domain.AttendanceFact{{LearnerKey: "k-ama", Date: day("2024-01-02")}},
		[]domain.ParticipationFact{
			{LearnerKey: "k-ama", Date: day("2024-01-03")},
			{LearnerName: "Zed Nobody", Date: day("2024-01-30")},
		},
	)
	assert.Equal(t, []time.Time{day("2024-01-02"), day("2024-01-03")}, dates)

	calendar := NewBuilder(config.Default(), nil).BuildDates(dates)
	require.Len(t, calendar, 2, "orphan participation does not stretch dim_date")
	assert.Equal(t, day("2024-01-03"), calendar[1].Date)
}

func TestBuildWeeks(t *testing.T) {
	b := NewBuilder(config.Default(), nil)
	weeks := b.BuildWeeks(
		[]domain.AttendanceFact{
			{Cohort: "C1", Track: "data", WeekNumber: 1, Date: day("2024-08-07")},
			{Cohort: "C1", Track: "data", WeekNumber: 1, Date: day("2024-08-05")},
			{Cohort: "C1", Track: "data", WeekNumber: 1, Date: day("2024-08-09")},
			{Cohort: "C1", Track: "web", WeekNumber: 1, Date: day("2024-08-06")},
		},
		[]domain.AssessmentFact{
			{Cohort: "C1", Track: "data", WeekNumber: 1},
			{Cohort: "C1", Track: "data", WeekNumber: 2},
		},
	)

	require.Len(t, weeks, 3)
	w1 := weeks[0]
	assert.Equal(t, transform.WeekKey("C1", "data", 1), w1.WeekKey)
	assert.Equal(t, day("2024-08-05"), w1.StartDate)
	assert.Equal(t, day("2024-08-09"), w1.EndDate)
	assert.Equal(t, "Week 1", w1.Label)

	w2 := weeks[1]
	assert.Equal(t, 2, w2.WeekNumber)
	assert.True(t, w2.StartDate.IsZero(), "assessment-only week has no dates")

	assert.Equal(t, "web", weeks[2].Track)

	keys := make(map[string]bool)
	for _, w := range weeks {
		assert.False(t, keys[w.WeekKey], "duplicate week %s", w.WeekKey)
		keys[w.WeekKey] = true
	}
}

func TestBuildLearners(t *testing.T) {
	b := NewBuilder(config.Default(), nil)
	identities := []domain.LearnerIdentity{
		{LearnerKey: "k-ama", Email: "ama@x.com", DisplayName: "Ama Owusu", Cohort: "C1", Track: "data"},
		{LearnerKey: "k-ama", Email: "ama@x.com", DisplayName: "Ama O.", Cohort: "C2", Track: "web"},
		{LearnerKey: "k-esi", DisplayName: "Esi", Cohort: "C1", Track: "data", UnresolvedEmail: true},
		{LearnerKey: "k-kofi", Email: "kofi@x.com", DisplayName: "Kofi", Cohort: "C1", Track: "data"},
	}
	statuses := map[string]domain.LearnerStatus{
		"k-ama": {
			LearnerKey:          "k-ama",
			Certified:           true,
			Graduated:           true,
			CurrentStatus:       domain.StatusCertified,
			CertificationStatus: "Certified",
			EnrollmentDate:      day("2024-01-08"),
		},
		"k-esi": {LearnerKey: "k-esi", CurrentStatus: domain.StatusWithdrawn, Track: "Backend"},
	}

	learners := b.BuildLearners(identities, statuses)
	require.Len(t, learners, 3, "one row per learner key")

	ama := learners[0]
	assert.Equal(t, "k-ama", ama.LearnerKey)
	assert.Equal(t, "C2", ama.Cohort, "latest enrollment")
	assert.Equal(t, "web", ama.Track)
	assert.Equal(t, "Ama Owusu", ama.DisplayName)
	assert.Equal(t, domain.StatusCertified, ama.CurrentStatus)
	assert.True(t, ama.Certified)
	assert.Equal(t, day("2024-01-08"), ama.EnrollmentDate)

	esi := learners[1]
	assert.True(t, esi.UnresolvedEmail)
	assert.Empty(t, esi.Email)
	assert.Equal(t, domain.StatusWithdrawn, esi.CurrentStatus)
	assert.Equal(t, "Backend", esi.Track)

	kofi := learners[2]
	assert.Equal(t, domain.StatusUnknown, kofi.CurrentStatus)
	assert.False(t, kofi.Graduated)
}
