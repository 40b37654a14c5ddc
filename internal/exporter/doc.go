// Package exporter publishes a run's star schema.
//
// CSVWriter renders tables as CSV with an optional UTF-8 BOM for Excel.
// Publisher writes every table plus rejected_rows.csv and run_manifest.json
// into a staging directory and swaps it into <output>/current in one step,
// optionally mirroring the tables into a Warehouse first.
//
// Example usage:
//
//	publisher := exporter.NewPublisher(files.NewManager(nil), cfg.Output, nil, logger)
//	manifest := exporter.NewManifest(runID, started, cfg.Attendance.ThresholdMinutes, cohorts, schema)
//	err := publisher.Publish(ctx, schema, manifest)
package exporter
