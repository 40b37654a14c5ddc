// Package config provides configuration management for the cohort ETL pipeline.
// It loads configuration from multiple sources, validates it, and exposes a
// single Config value that is threaded explicitly through a pipeline run.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Command-line flags of cmd/cohortetl (highest priority)
//	2. Environment variables
//	3. YAML configuration file
//	4. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern COHORTETL_<SECTION>_<KEY>:
//
//	COHORTETL_ATTENDANCE_THRESHOLD_MINUTES=30
//	COHORTETL_OUTPUT_DIR=/srv/star
//	COHORTETL_LOGGING_LEVEL=debug
//
// Cohorts are only configurable from the file.
//
// # Example File
//
//	attendance:
//	  threshold_minutes: 30
//	cohorts:
//	  - name: nss-2024
//	    default_track: data-engineering
//	    attendance_dir: data/Zoom Attendance
//	    assessment_file: data/Labs & Quizes/Labs & Quizes.xlsx
//	    participation_file: data/Participation/Participation records.xlsx
//	    status_file: data/Status of Learners/Status of Participanat.xlsx
//
// Relative paths in the file are resolved against the file's directory.
package config
