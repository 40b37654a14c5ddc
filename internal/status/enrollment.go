package status

import (
	"time"

	"cohortetl/internal/identity"
	"cohortetl/pkg/contracts/domain"
)

type enrollmentKey struct {
	learnerKey string
	cohort     string
}

// Enrollments returns the directory's identities with EnrollmentDate set per
// cohort: the earliest attendance date in that cohort, else the earliest
// enrollment date the cohort's status rows state. Identities with neither
// keep a zero date. Unparsable stated dates are skipped here; Resolve
// reports them.
func (r *Resolver) Enrollments(records []domain.RawRecord, dir *identity.Directory, attendance []domain.AttendanceFact) []domain.LearnerIdentity {
	attended := make(map[enrollmentKey]time.Time)
	for _, f := range attendance {
		k := enrollmentKey{f.LearnerKey, f.Cohort}
		if first, ok := attended[k]; !ok || f.Date.Before(first) {
			attended[k] = f.Date
		}
	}

	stated := make(map[enrollmentKey]time.Time)
	for _, rec := range records {
		v := rec.Get(r.cfg.EnrollmentDateColumns...)
		if v == "" {
			continue
		}
		learner, rej := dir.Identify(rec, r.cols)
		if rej != nil {
			continue
		}
		d, err := r.dates.Parse(v)
		if err != nil {
			continue
		}
		k := enrollmentKey{learner.LearnerKey, rec.Cohort}
		if first, ok := stated[k]; !ok || d.Before(first) {
			stated[k] = d
		}
	}

	identities := dir.Identities()
	out := make([]domain.LearnerIdentity, len(identities))
	for i, id := range identities {
		k := enrollmentKey{id.LearnerKey, id.Cohort}
		if d, ok := attended[k]; ok {
			id.EnrollmentDate = d
		} else if d, ok := stated[k]; ok {
			id.EnrollmentDate = d
		}
		out[i] = id
	}
	return out
}
