package identity

import (
	"fmt"
	"sort"

	"cohortetl/internal/normalize"
	"cohortetl/pkg/contracts/domain"
)

// Match is the outcome of a name lookup
type Match int

const (
	NoMatch Match = iota
	Matched
	Ambiguous
)

func (m Match) String() string {
	switch m {
	case Matched:
		return "matched"
	case Ambiguous:
		return "ambiguous"
	default:
		return "no_match"
	}
}

// Alias is one row of the name lookup table
type Alias struct {
	Cohort     string `json:"cohort"`
	Name       string `json:"name"`
	LearnerKey string `json:"learner_key"`
}

type cohortKey struct {
	cohort string
	value  string
}

// Directory is the alias table produced by the Resolver.
// It is read-only once returned and safe for concurrent lookups.
type Directory struct {
	byEmail    map[cohortKey]domain.LearnerIdentity
	byName     map[cohortKey]domain.LearnerIdentity
	ambiguous  map[cohortKey][]string
	identities []domain.LearnerIdentity
}

func newDirectory() *Directory {
	return &Directory{
		byEmail:   make(map[cohortKey]domain.LearnerIdentity),
		byName:    make(map[cohortKey]domain.LearnerIdentity),
		ambiguous: make(map[cohortKey][]string),
	}
}

// LookupEmail returns the identity for an email within a cohort
func (d *Directory) LookupEmail(cohort, email string) (domain.LearnerIdentity, bool) {
	id, ok := d.byEmail[cohortKey{cohort, normalize.Email(email)}]
	return id, ok
}

// LookupName returns the identity a name maps to within a cohort.
// Names shared by two emails in the cohort are reported Ambiguous and never resolved.
func (d *Directory) LookupName(cohort, name string) (domain.LearnerIdentity, Match) {
	key := cohortKey{cohort, normalize.Name(name)}
	if key.value == "" {
		return domain.LearnerIdentity{}, NoMatch
	}
	if _, ok := d.ambiguous[key]; ok {
		return domain.LearnerIdentity{}, Ambiguous
	}
	if id, ok := d.byName[key]; ok {
		return id, Matched
	}
	return domain.LearnerIdentity{}, NoMatch
}

// Lookup resolves a free-text token that is either an email or a name
func (d *Directory) Lookup(cohort, token string) (domain.LearnerIdentity, Match) {
	if normalize.IsEmail(token) {
		if id, ok := d.LookupEmail(cohort, token); ok {
			return id, Matched
		}
		return domain.LearnerIdentity{}, NoMatch
	}
	return d.LookupName(cohort, token)
}

// Identify resolves the learner of a raw row from its email and name cells.
// A non-email value in an email column is treated as a name. The returned
// rejection is nil when the row resolved.
func (d *Directory) Identify(rec domain.RawRecord, cols Columns) (domain.LearnerIdentity, *domain.RejectedRow) {
	email, name := cols.extract(rec)
	switch {
	case email != "":
		if id, ok := d.LookupEmail(rec.Cohort, email); ok {
			return id, nil
		}
		r := domain.NewRejectedRow(domain.ReasonUnresolvedIdentity, rec.Ref(), email, "email not in learner directory")
		return domain.LearnerIdentity{}, &r
	case name != "":
		id, m := d.LookupName(rec.Cohort, name)
		switch m {
		case Matched:
			return id, nil
		case Ambiguous:
			r := domain.NewRejectedRow(domain.ReasonAmbiguousMapping, rec.Ref(), name,
				fmt.Sprintf("name maps to %v", d.ambiguous[cohortKey{rec.Cohort, normalize.Name(name)}]))
			return domain.LearnerIdentity{}, &r
		default:
			r := domain.NewRejectedRow(domain.ReasonUnresolvedIdentity, rec.Ref(), name, "name not in learner directory")
			return domain.LearnerIdentity{}, &r
		}
	default:
		r := domain.NewRejectedRow(domain.ReasonMissingIdentifier, rec.Ref(), "", "row has neither name nor email")
		return domain.LearnerIdentity{}, &r
	}
}

// Identities returns every identity sorted by learner key, then cohort
func (d *Directory) Identities() []domain.LearnerIdentity {
	out := make([]domain.LearnerIdentity, len(d.identities))
	copy(out, d.identities)
	return out
}

// Aliases returns the name lookup table sorted by cohort, then name
func (d *Directory) Aliases() []Alias {
	out := make([]Alias, 0, len(d.byName))
	for k, id := range d.byName {
		out = append(out, Alias{Cohort: k.cohort, Name: k.value, LearnerKey: id.LearnerKey})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Cohort != out[j].Cohort {
			return out[i].Cohort < out[j].Cohort
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Len returns the number of identities
func (d *Directory) Len() int {
	return len(d.identities)
}
