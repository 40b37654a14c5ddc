package identity

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/samber/lo"

	"cohortetl/internal/config"
	"cohortetl/internal/normalize"
	"cohortetl/pkg/contracts/domain"
)

// Columns names the identifier columns of one source kind
type Columns struct {
	Email []string
	Name  []string
	Track []string
}

// extract returns the canonical email and display name of a row.
// A value in an email column that is not an address is taken as the name
// when the row has no separate name.
func (c Columns) extract(rec domain.RawRecord) (email, name string) {
	rawEmail := strings.TrimSpace(rec.Get(c.Email...))
	name = normalize.DisplayName(rec.Get(c.Name...))
	if rawEmail != "" {
		if normalize.IsEmail(rawEmail) {
			email = normalize.Email(rawEmail)
		} else if name == "" {
			name = normalize.DisplayName(rawEmail)
		}
	}
	return email, name
}

// ColumnsFor returns the configured identifier columns of a source kind
func ColumnsFor(cfg *config.Config, kind domain.SourceKind) Columns {
	switch kind {
	case domain.SourceAttendance:
		return Columns{Email: cfg.Attendance.EmailColumns, Name: cfg.Attendance.NameColumns}
	case domain.SourceLab, domain.SourceQuiz:
		return Columns{Email: cfg.Assessment.EmailColumns, Name: cfg.Assessment.NameColumns}
	case domain.SourceStatus:
		return Columns{Email: cfg.Status.EmailColumns, Name: cfg.Status.NameColumns, Track: cfg.Status.TrackColumns}
	case domain.SourceParticipation:
		return Columns{Name: cfg.Participation.ParticipantColumns}
	}
	return Columns{}
}

// seedKinds are read for email-bearing rows, most complete source first,
// so the first-seen display name comes from attendance where possible.
var seedKinds = []domain.SourceKind{
	domain.SourceAttendance,
	domain.SourceStatus,
	domain.SourceLab,
	domain.SourceQuiz,
}

// placeholderKinds may create placeholder identities for name-only rows
var placeholderKinds = []domain.SourceKind{
	domain.SourceAttendance,
	domain.SourceStatus,
}

// Resolver reconciles learner identity across sources
type Resolver struct {
	cfg    *config.Config
	paths  *normalize.PathConvention
	logger *slog.Logger
}

// NewResolver creates an identity resolver
func NewResolver(cfg *config.Config, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		cfg:    cfg,
		paths:  normalize.NewPathConvention(cfg.Attendance.PathPattern),
		logger: logger.With(slog.String("component", "identity_resolver")),
	}
}

// recordTrack is the track a row places its learner in: the track segment of
// an attendance file's path, else the cohort default carried on the row
func (r *Resolver) recordTrack(rec domain.RawRecord) string {
	if rec.SourceKind == domain.SourceAttendance {
		return r.paths.Track(rec.RelPath(), rec.Track)
	}
	return rec.Track
}

type nameClaim struct {
	display string
	emails  []string
	ref     domain.SourceRef // first row that introduced a second email
}

// Resolve builds the learner directory from a batch.
//
// Every (email, cohort) pair seen in attendance, status or assessment rows
// becomes one identity keyed by the email. Its track is the status sheet's
// track column when present, else the track of its first attendance file.
// Names seen next to an email become aliases within the cohort, unless the
// same name appears with two emails, which is reported as an ambiguous
// mapping. Name-only attendance and status rows that match no alias get a
// placeholder identity flagged UnresolvedEmail.
//
// The returned rows are flagged, not dropped: they describe the directory.
// Row-level rejections are raised later by Directory.Identify.
func (r *Resolver) Resolve(batch *domain.Batch) (*Directory, []domain.RejectedRow) {
	d := newDirectory()
	var flagged []domain.RejectedRow

	claims := make(map[cohortKey]*nameClaim)
	warned := make(map[string]bool)

	for _, kind := range seedKinds {
		cols := ColumnsFor(r.cfg, kind)
		for _, rec := range batch.Kind(kind) {
			email, name := cols.extract(rec)
			if email == "" {
				continue
			}
			k := cohortKey{rec.Cohort, email}
			track := strings.TrimSpace(rec.Get(cols.Track...))

			id, exists := d.byEmail[k]
			if !exists {
				id = domain.LearnerIdentity{
					LearnerKey:  LearnerKey(email),
					Email:       email,
					DisplayName: name,
					Cohort:      rec.Cohort,
					Track:       r.recordTrack(rec),
				}
			} else if name != "" {
				if id.DisplayName == "" {
					id.DisplayName = name
				} else if normalize.Name(id.DisplayName) != normalize.Name(name) {
					warnKey := rec.Cohort + "\x1f" + email + "\x1f" + normalize.Name(name)
					if !warned[warnKey] {
						warned[warnKey] = true
						r.logger.Warn("Learner seen under another name; keeping first-seen name",
							slog.String("cohort", rec.Cohort),
							slog.String("email", email),
							slog.String("kept", id.DisplayName),
							slog.String("ignored", name),
							slog.String("origin_path", rec.OriginPath),
							slog.Int("row", rec.Row))
					}
				}
			}
			if track != "" {
				id.Track = track
			}
			d.byEmail[k] = id

			if name == "" {
				continue
			}
			nk := cohortKey{rec.Cohort, normalize.Name(name)}
			claim, ok := claims[nk]
			if !ok {
				claims[nk] = &nameClaim{display: name, emails: []string{email}}
				continue
			}
			if !lo.Contains(claim.emails, email) {
				if len(claim.emails) == 1 {
					claim.ref = rec.Ref()
				}
				claim.emails = append(claim.emails, email)
			}
		}
	}

	// Aliases are built after seeding so they carry final display names
	nameKeys := make([]cohortKey, 0, len(claims))
	for k := range claims {
		nameKeys = append(nameKeys, k)
	}
	sortCohortKeys(nameKeys)
	for _, nk := range nameKeys {
		claim := claims[nk]
		if len(claim.emails) > 1 {
			d.ambiguous[nk] = claim.emails
			row := domain.NewRejectedRow(domain.ReasonAmbiguousMapping, claim.ref, claim.display,
				fmt.Sprintf("name shared by %s", strings.Join(claim.emails, ", ")))
			row.Dropped = false
			flagged = append(flagged, row)
			r.logger.Warn("Ambiguous name mapping needs manual resolution",
				slog.String("cohort", nk.cohort),
				slog.String("name", claim.display),
				slog.Any("emails", claim.emails))
			continue
		}
		d.byName[nk] = d.byEmail[cohortKey{nk.cohort, claim.emails[0]}]
	}

	placeholders := 0
	for _, kind := range placeholderKinds {
		cols := ColumnsFor(r.cfg, kind)
		for _, rec := range batch.Kind(kind) {
			email, name := cols.extract(rec)
			if email != "" || name == "" {
				continue
			}
			nk := cohortKey{rec.Cohort, normalize.Name(name)}
			if _, ok := d.ambiguous[nk]; ok {
				continue
			}
			if _, ok := d.byName[nk]; ok {
				continue
			}
			id := domain.LearnerIdentity{
				LearnerKey:      PlaceholderKey(nk.value, rec.Cohort),
				DisplayName:     name,
				Cohort:          rec.Cohort,
				Track:           r.recordTrack(rec),
				UnresolvedEmail: true,
			}
			if track := strings.TrimSpace(rec.Get(cols.Track...)); track != "" {
				id.Track = track
			}
			d.byName[nk] = id
			placeholders++

			row := domain.NewRejectedRow(domain.ReasonUnresolvedIdentity, rec.Ref(), name,
				"no email known for name; placeholder identity created")
			row.Dropped = false
			flagged = append(flagged, row)
		}
	}

	for _, id := range d.byEmail {
		d.identities = append(d.identities, id)
	}
	for _, id := range d.byName {
		if id.UnresolvedEmail {
			d.identities = append(d.identities, id)
		}
	}
	sort.Slice(d.identities, func(i, j int) bool {
		a, b := d.identities[i], d.identities[j]
		if a.LearnerKey != b.LearnerKey {
			return a.LearnerKey < b.LearnerKey
		}
		return a.Cohort < b.Cohort
	})

	r.logger.Info("Learner identities resolved",
		slog.Int("identities", len(d.identities)),
		slog.Int("aliases", len(d.byName)),
		slog.Int("ambiguous_names", len(d.ambiguous)),
		slog.Int("placeholders", placeholders))

	return d, flagged
}

func sortCohortKeys(keys []cohortKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].cohort != keys[j].cohort {
			return keys[i].cohort < keys[j].cohort
		}
		return keys[i].value < keys[j].value
	})
}
