package config

// Application constants
const (
	AppName = "cohortetl"

	// EnvPrefix namespaces environment overrides, e.g. COHORTETL_ATTENDANCE_THRESHOLD_MINUTES
	EnvPrefix = "COHORTETL"

	DateLayout = "2006-01-02"

	DefaultThresholdMinutes = 30
	DefaultOutputDir        = "cleaned_data"
	DefaultLogFile          = "logs/etl_pipeline.log"

	// DefaultPathPattern is matched against the slash-separated path of an
	// attendance file relative to the cohort's attendance directory:
	// "<track>/week03/05-Aug-2024.csv" or "Week 3/05-Aug-2024.csv".
	// Without a track segment the cohort's default track applies.
	DefaultPathPattern = `(?i)(?:^|/)(?:(?P<track>[^/]+)/)?week[ _-]?(?P<week>\d+)/`

	// DefaultWeekColumnPattern matches "Week 1", "week1_lab", "Week 2 Quiz"
	DefaultWeekColumnPattern = `(?i)^\s*week[ _-]?(\d+)(?:[ _-]*(lab|quiz))?\s*$`
)
