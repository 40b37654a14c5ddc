// Package operations runs one refresh of the star schema as an ordered list of steps.
//
// The steps are load, resolve, transform, status, dimensions, assemble and
// publish. Each reads the artifacts of earlier steps from a RunState and
// stores its own; nothing is shared through globals. The Manager executes
// them sequentially, wraps each in an OpenTelemetry span, records step and
// run metrics, and stops at the first failure, marking the remaining steps
// skipped.
//
// Data-quality problems never fail a step: they are collected as rejected
// rows and published with the tables. Structural errors from the loader and
// publish errors fail the run and nothing is published.
//
// In validate mode the publish step is skipped, so a run can be checked
// without touching the output directory.
package operations
