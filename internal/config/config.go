package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete pipeline configuration.
// It is passed explicitly through a run; nothing reads it from globals.
type Config struct {
	Logging       LoggingConfig       `yaml:"logging" envconfig:"LOGGING"`
	Telemetry     TelemetryConfig     `yaml:"telemetry" envconfig:"TELEMETRY"`
	Attendance    AttendanceConfig    `yaml:"attendance" envconfig:"ATTENDANCE"`
	Assessment    AssessmentConfig    `yaml:"assessment" envconfig:"ASSESSMENT"`
	Participation ParticipationConfig `yaml:"participation" envconfig:"PARTICIPATION"`
	Status        StatusConfig        `yaml:"status" envconfig:"STATUS"`
	Calendar      CalendarConfig      `yaml:"calendar" envconfig:"CALENDAR"`
	Output        OutputConfig        `yaml:"output" envconfig:"OUTPUT"`
	Cohorts       []CohortConfig      `yaml:"cohorts" ignored:"true" validate:"required,min=1,unique=Name,dive"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"omitempty,oneof=debug info warn warning error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"omitempty,oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// TelemetryConfig controls tracing and metrics export
type TelemetryConfig struct {
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"omitempty,oneof=stdout none"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" validate:"omitempty,oneof=prometheus none"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" validate:"gte=0,lte=1"`
	PushgatewayURL string  `yaml:"pushgateway_url" envconfig:"PUSHGATEWAY_URL" validate:"omitempty,url"`
}

// AttendanceConfig describes the attendance logs and the attended rule
type AttendanceConfig struct {
	ThresholdMinutes float64  `yaml:"threshold_minutes" envconfig:"THRESHOLD_MINUTES" validate:"gte=0"`
	FilePattern      string   `yaml:"file_pattern" envconfig:"FILE_PATTERN"`
	PathPattern      string   `yaml:"path_pattern" envconfig:"PATH_PATTERN" validate:"required"`
	FilenameLayouts  []string `yaml:"filename_layouts" envconfig:"FILENAME_LAYOUTS"`
	NameColumns      []string `yaml:"name_columns" envconfig:"NAME_COLUMNS" validate:"required,min=1"`
	EmailColumns     []string `yaml:"email_columns" envconfig:"EMAIL_COLUMNS" validate:"required,min=1"`
	DurationColumns  []string `yaml:"duration_columns" envconfig:"DURATION_COLUMNS" validate:"required,min=1"`
	JoinColumns      []string `yaml:"join_columns" envconfig:"JOIN_COLUMNS"`
	LeaveColumns     []string `yaml:"leave_columns" envconfig:"LEAVE_COLUMNS"`
	DateColumns      []string `yaml:"date_columns" envconfig:"DATE_COLUMNS"`
}

// AssessmentConfig describes the wide lab/quiz workbook
type AssessmentConfig struct {
	LabSheet          string   `yaml:"lab_sheet" envconfig:"LAB_SHEET"`
	QuizSheet         string   `yaml:"quiz_sheet" envconfig:"QUIZ_SHEET"`
	EmailColumns      []string `yaml:"email_columns" envconfig:"EMAIL_COLUMNS"`
	NameColumns       []string `yaml:"name_columns" envconfig:"NAME_COLUMNS"`
	WeekColumnPattern string   `yaml:"week_column_pattern" envconfig:"WEEK_COLUMN_PATTERN" validate:"required"`
}

// ParticipationConfig describes the participation sheet
type ParticipationConfig struct {
	Sheet              string   `yaml:"sheet" envconfig:"SHEET"`
	DateColumns        []string `yaml:"date_columns" envconfig:"DATE_COLUMNS" validate:"required,min=1"`
	ParticipantColumns []string `yaml:"participant_columns" envconfig:"PARTICIPANT_COLUMNS" validate:"required,min=1"`
	Separators         string   `yaml:"separators" envconfig:"SEPARATORS" validate:"required"`
}

// StatusConfig describes the learner status sheet and how its values map to flags
type StatusConfig struct {
	Sheet                 string   `yaml:"sheet" envconfig:"SHEET"`
	EmailColumns          []string `yaml:"email_columns" envconfig:"EMAIL_COLUMNS" validate:"required_without=NameColumns"`
	NameColumns           []string `yaml:"name_columns" envconfig:"NAME_COLUMNS" validate:"required_without=EmailColumns"`
	TrackColumns          []string `yaml:"track_columns" envconfig:"TRACK_COLUMNS"`
	GraduationColumns     []string `yaml:"graduation_columns" envconfig:"GRADUATION_COLUMNS"`
	CertificationColumns  []string `yaml:"certification_columns" envconfig:"CERTIFICATION_COLUMNS"`
	StatusColumns         []string `yaml:"status_columns" envconfig:"STATUS_COLUMNS"`
	EnrollmentDateColumns []string `yaml:"enrollment_date_columns" envconfig:"ENROLLMENT_DATE_COLUMNS"`
	ObservedAtColumns     []string `yaml:"observed_at_columns" envconfig:"OBSERVED_AT_COLUMNS"`
	GraduatedValues       []string `yaml:"graduated_values" envconfig:"GRADUATED_VALUES"`
	CertifiedValues       []string `yaml:"certified_values" envconfig:"CERTIFIED_VALUES"`
	WithdrawnValues       []string `yaml:"withdrawn_values" envconfig:"WITHDRAWN_VALUES"`
	ActiveValues          []string `yaml:"active_values" envconfig:"ACTIVE_VALUES"`
}

// CalendarConfig drives dim_date generation
type CalendarConfig struct {
	ProgramStart string   `yaml:"program_start" envconfig:"PROGRAM_START"`
	Holidays     []string `yaml:"holidays" envconfig:"HOLIDAYS"`
	DateLayouts  []string `yaml:"date_layouts" envconfig:"DATE_LAYOUTS"`
}

// OutputConfig contains publish targets
type OutputConfig struct {
	Dir           string `yaml:"dir" envconfig:"DIR" validate:"required"`
	WarehousePath string `yaml:"warehouse_path" envconfig:"WAREHOUSE_PATH"`
	BOMPrefix     bool   `yaml:"bom_prefix" envconfig:"BOM_PREFIX"`
}

// CohortConfig locates the source files of one cohort.
// Any source may be omitted; a cohort with no sources at all is invalid.
type CohortConfig struct {
	Name              string `yaml:"name" validate:"required"`
	DefaultTrack      string `yaml:"default_track"`
	AttendanceDir     string `yaml:"attendance_dir" validate:"required_without_all=AssessmentFile ParticipationFile StatusFile"`
	AssessmentFile    string `yaml:"assessment_file"`
	ParticipationFile string `yaml:"participation_file"`
	StatusFile        string `yaml:"status_file"`
}

// Load builds the configuration from defaults, the YAML file at path (if any)
// and COHORTETL_* environment variables, in increasing order of precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getConfigFilePath()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg.resolvePaths(filepath.Dir(path))
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays YAML values on top of cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// resolvePaths makes relative cohort and output paths relative to the config file
func (c *Config) resolvePaths(baseDir string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}
	for i := range c.Cohorts {
		c.Cohorts[i].AttendanceDir = resolve(c.Cohorts[i].AttendanceDir)
		c.Cohorts[i].AssessmentFile = resolve(c.Cohorts[i].AssessmentFile)
		c.Cohorts[i].ParticipationFile = resolve(c.Cohorts[i].ParticipationFile)
		c.Cohorts[i].StatusFile = resolve(c.Cohorts[i].StatusFile)
	}
	c.Output.Dir = resolve(c.Output.Dir)
	c.Output.WarehousePath = resolve(c.Output.WarehousePath)
}

// Validate checks struct tags and the cross-field rules tags cannot express
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	re, err := regexp.Compile(c.Attendance.PathPattern)
	if err != nil {
		return fmt.Errorf("invalid attendance path pattern: %w", err)
	}
	if re.SubexpIndex("week") < 0 {
		return fmt.Errorf("attendance path pattern must define a (?P<week>...) group")
	}

	week, err := regexp.Compile(c.Assessment.WeekColumnPattern)
	if err != nil {
		return fmt.Errorf("invalid assessment week column pattern: %w", err)
	}
	if week.NumSubexp() < 1 {
		return fmt.Errorf("assessment week column pattern must capture the week number")
	}

	if c.Calendar.ProgramStart != "" {
		if _, err := time.Parse(DateLayout, c.Calendar.ProgramStart); err != nil {
			return fmt.Errorf("invalid program start %q: %w", c.Calendar.ProgramStart, err)
		}
	}
	for _, h := range c.Calendar.Holidays {
		if _, err := time.Parse(DateLayout, h); err != nil {
			return fmt.Errorf("invalid holiday %q: %w", h, err)
		}
	}

	if c.Logging.Output == "" {
		c.Logging.Output = "console"
	}
	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = DefaultLogFile
	}

	return nil
}

// Cohort returns the cohort with the given name
func (c *Config) Cohort(name string) (CohortConfig, bool) {
	for _, cohort := range c.Cohorts {
		if strings.EqualFold(cohort.Name, name) {
			return cohort, true
		}
	}
	return CohortConfig{}, false
}

// Marshal renders the effective configuration as YAML
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"cohortetl.yaml",
		"configs/cohortetl.yaml",
		"config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns a configuration matching the program's historical layout:
// Zoom exports under "Week N/DD-Mon-YYYY.csv", a Labs/Quizzes workbook,
// a participation sheet with comma-separated names and a status sheet.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: DefaultLogFile,
		},
		Telemetry: TelemetryConfig{
			Environment:    "development",
			TraceExporter:  "none",
			MetricExporter: "none",
			SampleRatio:    1.0,
		},
		Attendance: AttendanceConfig{
			ThresholdMinutes: DefaultThresholdMinutes,
			FilePattern:      "*.csv",
			PathPattern:      DefaultPathPattern,
			FilenameLayouts:  []string{"02-Jan-2006", "2006-01-02", "2006_01_02"},
			NameColumns:      []string{"Name", "Name (Original Name)", "Participant", "learner_name"},
			EmailColumns:     []string{"Email", "User Email", "email"},
			DurationColumns:  []string{"Duration", "Duration (Minutes)", "Total Duration"},
			JoinColumns:      []string{"Join Time", "Join time"},
			LeaveColumns:     []string{"Leave Time", "Leave time"},
			DateColumns:      []string{"Date"},
		},
		Assessment: AssessmentConfig{
			LabSheet:          "Labs",
			QuizSheet:         "Quizzes",
			EmailColumns:      []string{"email", "Email", "learner", "Learner"},
			NameColumns:       []string{"name", "Name", "learner_name"},
			WeekColumnPattern: DefaultWeekColumnPattern,
		},
		Participation: ParticipationConfig{
			DateColumns:        []string{"Date"},
			ParticipantColumns: []string{"Participants", "Participant", "Learners"},
			Separators:         ",;",
		},
		Status: StatusConfig{
			EmailColumns:          []string{"email", "Email"},
			NameColumns:           []string{"Name", "name", "learner_name"},
			TrackColumns:          []string{"Track", "track"},
			GraduationColumns:     []string{"Graduation Status"},
			CertificationColumns:  []string{"Certification Status"},
			StatusColumns:         []string{"Status", "Enrollment Status"},
			EnrollmentDateColumns: []string{"Enrollment Date", "Enrolled On"},
			ObservedAtColumns:     []string{"Status Date", "As Of", "Updated"},
			GraduatedValues:       []string{"graduate", "graduated", "yes", "true"},
			CertifiedValues:       []string{"certified", "yes", "true"},
			WithdrawnValues:       []string{"withdrawn", "dropped", "dropped out", "inactive"},
			ActiveValues:          []string{"active", "enrolled", "in progress"},
		},
		Calendar: CalendarConfig{
			DateLayouts: []string{
				"02-Jan-2006",
				DateLayout,
				"01/02/2006 03:04:05 PM",
				"01/02/2006 15:04:05",
				"01/02/2006",
				"2006-01-02 15:04:05",
				time.RFC3339,
			},
		},
		Output: OutputConfig{
			Dir:       DefaultOutputDir,
			BOMPrefix: true,
		},
	}
}
