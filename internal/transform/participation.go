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

// ParticipationResult is the output of the participation transformer.
// Facts includes orphan rows (empty LearnerKey) for tokens that did not resolve;
// each orphan has a matching entry in Rejected.
type ParticipationResult struct {
	Facts    []domain.ParticipationFact
	Rejected []domain.RejectedRow
}

// Resolved returns the facts with a learner key
func (r ParticipationResult) Resolved() []domain.ParticipationFact {
	var out []domain.ParticipationFact
	for _, f := range r.Facts {
		if !f.IsOrphan() {
			out = append(out, f)
		}
	}
	return out
}

// Orphans returns the facts whose learner could not be resolved
func (r ParticipationResult) Orphans() []domain.ParticipationFact {
	var out []domain.ParticipationFact
	for _, f := range r.Facts {
		if f.IsOrphan() {
			out = append(out, f)
		}
	}
	return out
}

// ParticipationTransformer explodes composite participation cells into
// one fact per (learner, date)
type ParticipationTransformer struct {
	cfg    config.ParticipationConfig
	dates  *normalize.DateParser
	logger *slog.Logger
}

// NewParticipationTransformer creates the transformer from a validated configuration
func NewParticipationTransformer(cfg *config.Config, logger *slog.Logger) *ParticipationTransformer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParticipationTransformer{
		cfg:    cfg.Participation,
		dates:  normalize.NewDateParser(cfg.Calendar.DateLayouts),
		logger: logger.With(slog.String("component", "participation_transformer")),
	}
}

// Transform splits the date and participant cells of every row on the
// configured separators and emits one fact per distinct learner per date.
// Tokens are resolved through the directory's alias table only; a token
// that does not resolve becomes an orphan row and a rejection.
func (t *ParticipationTransformer) Transform(records []domain.RawRecord, dir *identity.Directory) ParticipationResult {
	var result ParticipationResult
	seen := make(map[string]bool)

	reject := func(reason domain.ReasonCode, rec domain.RawRecord, learner, detail string) {
		r := domain.NewRejectedRow(reason, rec.Ref(), learner, detail)
		r.Table = domain.TableFactParticipation
		result.Rejected = append(result.Rejected, r)
	}

	for _, rec := range records {
		dates, err := t.parseDates(rec.Get(t.cfg.DateColumns...))
		if err != nil {
			reject(domain.ReasonMissingDate, rec, "", err.Error())
			continue
		}

		tokens := normalize.SplitList(rec.Get(t.cfg.ParticipantColumns...), t.cfg.Separators)
		if len(tokens) == 0 {
			reject(domain.ReasonMissingIdentifier, rec, "", "no participants listed")
			continue
		}

		for _, date := range dates {
			day := date.Format(domain.DateLayout)
			for _, token := range tokens {
				learner, m := dir.Lookup(rec.Cohort, token)
				if m == identity.Matched {
					key := learner.LearnerKey + "|" + day
					if seen[key] {
						continue
					}
					seen[key] = true
					name := learner.DisplayName
					if name == "" {
						name = normalize.DisplayName(token)
					}
					result.Facts = append(result.Facts, domain.ParticipationFact{
						ParticipationID: ParticipationID(learner.LearnerKey, date),
						LearnerKey:      learner.LearnerKey,
						Cohort:          rec.Cohort,
						Date:            date,
						LearnerName:     name,
						Source:          rec.Ref(),
					})
					continue
				}

				name := normalize.DisplayName(token)
				key := "orphan|" + rec.Cohort + "|" + normalize.Name(token) + "|" + day
				if seen[key] {
					continue
				}
				seen[key] = true
				result.Facts = append(result.Facts, domain.ParticipationFact{
					ParticipationID: OrphanParticipationID(rec.Cohort, normalize.Name(token), date),
					Cohort:          rec.Cohort,
					Date:            date,
					LearnerName:     name,
					Source:          rec.Ref(),
				})
				if m == identity.Ambiguous {
					reject(domain.ReasonAmbiguousMapping, rec, name, fmt.Sprintf("participant %q on %s matches several learners", name, day))
				} else {
					reject(domain.ReasonUnresolvedIdentity, rec, name, fmt.Sprintf("participant %q on %s not in learner directory", name, day))
				}
			}
		}
	}

	sort.SliceStable(result.Facts, func(i, j int) bool {
		a, b := result.Facts[i], result.Facts[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Cohort != b.Cohort {
			return a.Cohort < b.Cohort
		}
		if a.LearnerKey != b.LearnerKey {
			return a.LearnerKey < b.LearnerKey
		}
		return a.LearnerName < b.LearnerName
	})

	t.logger.Info("Participation transformed",
		slog.Int("rows", len(records)),
		slog.Int("facts", len(result.Facts)),
		slog.Int("rejected", len(result.Rejected)))

	return result
}

// parseDates reads a date cell that may list several dates
func (t *ParticipationTransformer) parseDates(cell string) ([]time.Time, error) {
	parts := normalize.SplitList(cell, t.cfg.Separators)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty date")
	}
	dates := make([]time.Time, 0, len(parts))
	for _, p := range parts {
		d, err := t.dates.Parse(p)
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, nil
}
