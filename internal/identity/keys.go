package identity

import (
	"strings"

	"github.com/google/uuid"
)

// Namespace is the UUID namespace all surrogate keys are derived in.
// Changing it changes every key the pipeline has ever published.
var Namespace = uuid.MustParse("6f1c1d0e-8b1f-5c3a-9a57-2f1f0e6b4c11")

// Key derives a deterministic surrogate key from a natural-key tuple.
// Parts are joined with a unit separator so ("a","bc") and ("ab","c") differ.
func Key(parts ...string) string {
	return uuid.NewSHA1(Namespace, []byte(strings.Join(parts, "\x1f"))).String()
}

// LearnerKey returns the key of the learner with the given canonical email.
// It does not depend on the cohort, so a learner keeps one key across cohorts.
func LearnerKey(email string) string {
	return Key("email", email)
}

// PlaceholderKey returns the key for a learner known only by name within a cohort
func PlaceholderKey(name, cohort string) string {
	return Key("name", name, cohort)
}
