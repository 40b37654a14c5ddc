package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// Email canonicalizes an email address: trimmed, lowercased, with any
// "mailto:" prefix or angle brackets removed. It does not validate.
func Email(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "mailto:"), "MAILTO:")
	s = strings.Trim(s, "<> \t")
	return strings.ToLower(s)
}

// IsEmail reports whether s looks like an address: one '@' with text on both sides
func IsEmail(s string) bool {
	s = Email(s)
	at := strings.IndexByte(s, '@')
	return at > 0 && at == strings.LastIndexByte(s, '@') && at < len(s)-1 &&
		!strings.ContainsFunc(s, unicode.IsSpace)
}

// Name returns the matching key for a learner name: NFC-normalized, trimmed,
// internal whitespace collapsed to single spaces, and case-folded.
// Two names match only if their keys are equal; there is no fuzzy matching.
func Name(s string) string {
	return folder.String(DisplayName(s))
}

// DisplayName tidies a name for presentation without changing its case
func DisplayName(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// SplitList splits a composite cell on any of the separator runes,
// trimming tokens and dropping empty ones.
func SplitList(s, separators string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(separators, r)
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Matches reports whether s equals any of values after trimming and case folding
func Matches(s string, values []string) bool {
	key := Name(s)
	if key == "" {
		return false
	}
	for _, v := range values {
		if Name(v) == key {
			return true
		}
	}
	return false
}
