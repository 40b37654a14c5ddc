// Package files provides file system operations and discovery utilities
// for the cohort ETL pipeline.
//
// All operations go through an afero.Fs so the pipeline can run against the
// real disk in production and an in-memory filesystem in tests.
//
// Discovery: walks source directories and returns matching files in a stable,
// path-sorted order. Office lock files and hidden files are skipped.
//
// Manager: writes outputs into a per-run staging directory and swaps that
// directory into place once every table has been written, so a failed run
// never leaves partially published outputs behind.
//
// Example usage:
//
//	discovery := files.NewDiscovery(afero.NewOsFs())
//	csvs, err := discovery.FindCSVFiles("Zoom Attendance/Cohort 1")
//
//	manager := files.NewManager(afero.NewOsFs())
//	staged, err := manager.Stage("cleaned_data", runID)
//	// ... write tables into staged ...
//	err = manager.Swap(staged, "cleaned_data/current", runID)
package files
