// Package app provides application initialization and lifecycle management.
//
// An Application holds everything one process needs to refresh the star
// schema: the validated configuration, the filesystem, the logger, the
// OpenTelemetry providers and the optional DuckDB warehouse. Each call to
// Execute builds a fresh set of steps, so no state leaks between runs.
//
// # Lifecycle
//
//	1. Load configuration (config.Load) and initialize logging
//	2. NewApplication initializes telemetry and opens the warehouse
//	3. Run or Execute performs a refresh in run or validate mode
//	4. Close flushes telemetry and closes the warehouse
package app
