// Package transform turns raw source rows into fact rows.
//
// Each transformer reads the rows of one source kind, resolves learners
// through the identity directory, normalizes values with package normalize
// and assigns deterministic IDs, so that re-running on identical input
// produces identical facts. Rows that cannot be used are returned as
// rejected rows with a reason code; transformers never fail a run.
package transform
