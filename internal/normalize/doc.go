// Package normalize holds the field-level canonicalization shared by every
// transformer: email and name keys, durations, scores and dates.
//
// Nothing here knows about sources or cohorts; each function takes a raw
// cell value and returns either a canonical value or an error describing
// why the cell cannot be used.
package normalize
