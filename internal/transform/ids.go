package transform

import (
	"strconv"
	"time"

	"cohortetl/internal/identity"
	"cohortetl/pkg/contracts/domain"
)

// AttendanceID identifies one learner's attendance of one session on one day
func AttendanceID(learnerKey string, date time.Time, session string) string {
	return identity.Key("attendance", learnerKey, date.Format(domain.DateLayout), session)
}

// AssessmentID identifies one learner's score for one lab or quiz week
func AssessmentID(learnerKey string, week int, typ domain.AssessmentType) string {
	return identity.Key("assessment", learnerKey, strconv.Itoa(week), string(typ))
}

// ParticipationID identifies one learner's participation on one day
func ParticipationID(learnerKey string, date time.Time) string {
	return identity.Key("participation", learnerKey, date.Format(domain.DateLayout))
}

// OrphanParticipationID identifies an unresolved participation token
func OrphanParticipationID(cohort, name string, date time.Time) string {
	return identity.Key("participation-orphan", cohort, name, date.Format(domain.DateLayout))
}

// WeekKey identifies one (cohort, track, week) row of dim_week
func WeekKey(cohort, track string, week int) string {
	return identity.Key("week", cohort, track, strconv.Itoa(week))
}
