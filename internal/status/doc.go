// Package status derives each learner's lifecycle state from the status
// sheets of every cohort and the facts the pipeline produced.
package status
