package status

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"cohortetl/internal/config"
	"cohortetl/internal/identity"
	"cohortetl/internal/normalize"
	"cohortetl/pkg/contracts/domain"
)

// Activity summarizes what the fact tables say about each learner
type Activity struct {
	FirstAttendance map[string]time.Time
	Active          map[string]bool
}

// ActivityFrom collects the earliest attendance date and whether any fact
// exists for every learner key
func ActivityFrom(attendance []domain.AttendanceFact, assessments []domain.AssessmentFact, participation []domain.ParticipationFact) Activity {
	a := Activity{
		FirstAttendance: make(map[string]time.Time),
		Active:          make(map[string]bool),
	}
	for _, f := range attendance {
		if first, ok := a.FirstAttendance[f.LearnerKey]; !ok || f.Date.Before(first) {
			a.FirstAttendance[f.LearnerKey] = f.Date
		}
		a.Active[f.LearnerKey] = true
	}
	for _, f := range assessments {
		a.Active[f.LearnerKey] = true
	}
	for _, f := range participation {
		if !f.IsOrphan() {
			a.Active[f.LearnerKey] = true
		}
	}
	return a
}

// observation is one status row after value mapping
type observation struct {
	seq        int
	observedAt time.Time
	explicit   domain.CurrentStatus
}

// accumulator merges the observations of one learner
type accumulator struct {
	status       domain.LearnerStatus
	statedEnroll time.Time
	latest       *observation
}

// Resolver merges status rows from every cohort into one status per learner
type Resolver struct {
	cfg    config.StatusConfig
	cols   identity.Columns
	dates  *normalize.DateParser
	logger *slog.Logger
}

// NewResolver creates a status resolver from a validated configuration
func NewResolver(cfg *config.Config, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		cfg:    cfg.Status,
		cols:   identity.ColumnsFor(cfg, domain.SourceStatus),
		dates:  normalize.NewDateParser(cfg.Calendar.DateLayouts),
		logger: logger.With(slog.String("component", "status_resolver")),
	}
}

// Resolve returns the status of every learner in the directory, keyed by learner key.
//
// graduated and certified are true if any row, in any cohort, says so.
// current_status is Certified, then Graduated, when either flag is set;
// otherwise the most recent explicit Withdrawn or Active observation
// (by status date, then load order); otherwise Active when the learner has
// any fact, else Unknown. enrollment_date is the earliest attendance date,
// falling back to the earliest stated enrollment date.
func (r *Resolver) Resolve(records []domain.RawRecord, dir *identity.Directory, activity Activity) (map[string]domain.LearnerStatus, []domain.RejectedRow) {
	var rejected []domain.RejectedRow
	acc := make(map[string]*accumulator)

	get := func(key string) *accumulator {
		a, ok := acc[key]
		if !ok {
			a = &accumulator{status: domain.LearnerStatus{LearnerKey: key}}
			acc[key] = a
		}
		return a
	}

	for _, id := range dir.Identities() {
		a := get(id.LearnerKey)
		if a.status.Track == "" {
			a.status.Track = id.Track
		}
	}

	for seq, rec := range records {
		learner, rej := dir.Identify(rec, r.cols)
		if rej != nil {
			rej.Table = domain.TableDimLearner
			rejected = append(rejected, *rej)
			continue
		}
		a := get(learner.LearnerKey)

		grad := strings.TrimSpace(rec.Get(r.cfg.GraduationColumns...))
		cert := strings.TrimSpace(rec.Get(r.cfg.CertificationColumns...))
		state := strings.TrimSpace(rec.Get(r.cfg.StatusColumns...))

		if normalize.Matches(grad, r.cfg.GraduatedValues) || normalize.Matches(state, r.cfg.GraduatedValues) {
			a.status.Graduated = true
		}
		if normalize.Matches(cert, r.cfg.CertifiedValues) || normalize.Matches(state, r.cfg.CertifiedValues) {
			a.status.Certified = true
		}
		if grad != "" {
			a.status.GraduationStatus = grad
		}
		if cert != "" {
			a.status.CertificationStatus = cert
		}
		if track := strings.TrimSpace(rec.Get(r.cols.Track...)); track != "" {
			a.status.Track = track
		}

		if v := rec.Get(r.cfg.EnrollmentDateColumns...); v != "" {
			d, err := r.dates.Parse(v)
			if err != nil {
				row := domain.NewRejectedRow(domain.ReasonInvalidValue, rec.Ref(), learner.DisplayName, "enrollment date: "+err.Error())
				row.Table = domain.TableDimLearner
				row.Dropped = false
				rejected = append(rejected, row)
			} else if a.statedEnroll.IsZero() || d.Before(a.statedEnroll) {
				a.statedEnroll = d
			}
		}

		obs := &observation{seq: seq, explicit: r.explicit(state)}
		if v := rec.Get(r.cfg.ObservedAtColumns...); v != "" {
			if d, err := r.dates.Parse(v); err == nil {
				obs.observedAt = d
			}
		}
		if obs.explicit != "" && (a.latest == nil || later(obs, a.latest)) {
			a.latest = obs
		}
	}

	out := make(map[string]domain.LearnerStatus, len(acc))
	for key, a := range acc {
		s := a.status
		switch {
		case s.Certified:
			s.CurrentStatus = domain.StatusCertified
		case s.Graduated:
			s.CurrentStatus = domain.StatusGraduated
		case a.latest != nil:
			s.CurrentStatus = a.latest.explicit
		case activity.Active[key]:
			s.CurrentStatus = domain.StatusActive
		default:
			s.CurrentStatus = domain.StatusUnknown
		}

		if first, ok := activity.FirstAttendance[key]; ok {
			s.EnrollmentDate = first
		} else {
			s.EnrollmentDate = a.statedEnroll
		}
		out[key] = s
	}

	counts := lo.CountValuesBy(lo.Values(out), func(s domain.LearnerStatus) domain.CurrentStatus {
		return s.CurrentStatus
	})
	r.logger.Info("Learner status resolved",
		slog.Int("learners", len(out)),
		slog.Int("certified", counts[domain.StatusCertified]),
		slog.Int("graduated", counts[domain.StatusGraduated]),
		slog.Int("withdrawn", counts[domain.StatusWithdrawn]),
		slog.Int("active", counts[domain.StatusActive]),
		slog.Int("unknown", counts[domain.StatusUnknown]),
		slog.Int("rejected", len(rejected)))

	return out, rejected
}

// explicit maps a free-text status cell to a status, or "" when it states none
func (r *Resolver) explicit(state string) domain.CurrentStatus {
	switch {
	case state == "":
		return ""
	case normalize.Matches(state, r.cfg.CertifiedValues):
		return domain.StatusCertified
	case normalize.Matches(state, r.cfg.GraduatedValues):
		return domain.StatusGraduated
	case normalize.Matches(state, r.cfg.WithdrawnValues):
		return domain.StatusWithdrawn
	case normalize.Matches(state, r.cfg.ActiveValues):
		return domain.StatusActive
	}
	return ""
}

// later reports whether a was observed after b. Undated observations order
// by load position only, after any dated one with the same date.
func later(a, b *observation) bool {
	if !a.observedAt.Equal(b.observedAt) {
		return a.observedAt.After(b.observedAt)
	}
	return a.seq > b.seq
}

// Keys returns the learner keys of a status map in sorted order
func Keys(statuses map[string]domain.LearnerStatus) []string {
	keys := lo.Keys(statuses)
	sort.Strings(keys)
	return keys
}
