package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cohortetl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const minimalYAML = `
cohorts:
  - name: nss-2024
    default_track: data-engineering
    attendance_dir: data/zoom
    assessment_file: data/labs.xlsx
    status_file: data/status.xlsx
`

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		env         map[string]string
		wantErr     bool
		validateCfg func(*testing.T, *Config, string)
	}{
		{
			name:    "defaults with file cohorts",
			content: minimalYAML,
			validateCfg: func(t *testing.T, cfg *Config, dir string) {
				assert.Equal(t, 30.0, cfg.Attendance.ThresholdMinutes)
				assert.Equal(t, DefaultPathPattern, cfg.Attendance.PathPattern)
				assert.Equal(t, "Labs", cfg.Assessment.LabSheet)
				assert.Equal(t, "Quizzes", cfg.Assessment.QuizSheet)
				assert.Equal(t, ",;", cfg.Participation.Separators)
				require.Len(t, cfg.Cohorts, 1)
				assert.Equal(t, filepath.Join(dir, "data/zoom"), cfg.Cohorts[0].AttendanceDir)
				assert.Equal(t, filepath.Join(dir, DefaultOutputDir), cfg.Output.Dir)
			},
		},
		{
			name: "file overrides defaults",
			content: minimalYAML + `
attendance:
  threshold_minutes: 45
output:
  dir: /srv/star
`,
			validateCfg: func(t *testing.T, cfg *Config, _ string) {
				assert.Equal(t, 45.0, cfg.Attendance.ThresholdMinutes)
				assert.Equal(t, "/srv/star", cfg.Output.Dir)
				// untouched sections keep their defaults
				assert.NotEmpty(t, cfg.Attendance.DurationColumns)
			},
		},
		{
			name:    "env overrides file",
			content: minimalYAML + "attendance:\n  threshold_minutes: 45\n",
			env: map[string]string{
				"COHORTETL_ATTENDANCE_THRESHOLD_MINUTES": "20",
				"COHORTETL_LOGGING_LEVEL":                "debug",
			},
			validateCfg: func(t *testing.T, cfg *Config, _ string) {
				assert.Equal(t, 20.0, cfg.Attendance.ThresholdMinutes)
				assert.Equal(t, "debug", cfg.Logging.Level)
			},
		},
		{
			name:    "no cohorts",
			content: "attendance:\n  threshold_minutes: 30\n",
			wantErr: true,
		},
		{
			name:    "negative threshold",
			content: minimalYAML + "attendance:\n  threshold_minutes: -1\n",
			wantErr: true,
		},
		{
			name:    "path pattern without week group",
			content: minimalYAML + "attendance:\n  path_pattern: '(?P<track>[^/]+)/'\n",
			wantErr: true,
		},
		{
			name: "duplicate cohort names",
			content: `
cohorts:
  - name: a
    attendance_dir: x
  - name: a
    attendance_dir: y
`,
			wantErr: true,
		},
		{
			name:    "cohort without sources",
			content: "cohorts:\n  - name: empty\n",
			wantErr: true,
		},
		{
			name:    "bad holiday",
			content: minimalYAML + "calendar:\n  holidays: ['2024-13-01']\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := writeConfig(t, tt.content)

			cfg, err := Load(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg, filepath.Dir(path))
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestDefault_IsValidOnceCohortAdded(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.Validate(), "default has no cohorts")

	cfg.Cohorts = []CohortConfig{{Name: "c1", AttendanceDir: "zoom"}}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "console", cfg.Logging.Output)
}

func TestValidate_LoggingFileDefault(t *testing.T) {
	cfg := Default()
	cfg.Cohorts = []CohortConfig{{Name: "c1", StatusFile: "status.xlsx"}}
	cfg.Logging.Output = "both"
	cfg.Logging.FilePath = ""

	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultLogFile, cfg.Logging.FilePath)
}

func TestValidate_StatusIdentifyingColumns(t *testing.T) {
	tests := []struct {
		name    string
		email   []string
		names   []string
		wantErr bool
	}{
		{name: "email and name", email: []string{"email"}, names: []string{"Name"}},
		{name: "name only", names: []string{"Name"}},
		{name: "email only", email: []string{"email"}},
		{name: "neither", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Cohorts = []CohortConfig{{Name: "c1", StatusFile: "status.xlsx"}}
			cfg.Status.EmailColumns = tt.email
			cfg.Status.NameColumns = tt.names

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConfig_Cohort(t *testing.T) {
	cfg := Default()
	cfg.Cohorts = []CohortConfig{{Name: "NSS-2024", AttendanceDir: "z"}}

	c, ok := cfg.Cohort("nss-2024")
	assert.True(t, ok)
	assert.Equal(t, "NSS-2024", c.Name)

	_, ok = cfg.Cohort("other")
	assert.False(t, ok)
}

func TestConfig_Marshal(t *testing.T) {
	cfg := Default()
	cfg.Cohorts = []CohortConfig{{Name: "c1", AttendanceDir: "z"}}

	out, err := cfg.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(out), "threshold_minutes: 30")
	assert.Contains(t, string(out), "name: c1")
}
