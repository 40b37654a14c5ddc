package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	apperrors "cohortetl/internal/errors"
	"cohortetl/internal/infrastructure"
	"cohortetl/internal/operations"
	"cohortetl/internal/shared/testutil"
	"cohortetl/pkg/contracts"
)

func writeProject(t *testing.T) (configPath, outDir string) {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteCSV(t, afero.NewOsFs(), filepath.Join(dir, "zoom", "Week 1", "05-Aug-2024.csv"),
		testutil.ZoomHeader,
		testutil.ZoomRow("Ama Owusu", "ama@x.com", "", "", "0:45:00"),
	)
	outDir = filepath.Join(dir, "published")
	configPath = filepath.Join(dir, "cohortetl.yaml")
	content := fmt.Sprintf(`
logging:
  level: error
  output: console
output:
  dir: %s
cohorts:
  - name: c1
    default_track: data
    attendance_dir: %s
`, outDir, filepath.Join(dir, "zoom"))
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	return configPath, outDir
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Cleanup(infrastructure.ResetLoggerForTesting)

	var stdout, stderr bytes.Buffer
	a := newApp()
	a.Writer = &stdout
	a.ErrWriter = &stderr
	err := a.Run(append([]string{"cohortetl"}, args...))
	return stdout.String(), stderr.String(), err
}

func TestConfigCommand(t *testing.T) {
	path, _ := writeProject(t)

	tests := []struct {
		name     string
		args     []string
		contains []string
	}{
		{
			name:     "file values",
			args:     []string{"-c", path, "config"},
			contains: []string{"threshold_minutes: 30", "name: c1"},
		},
		{
			name:     "flag overrides",
			args:     []string{"-c", path, "--log-level", "debug", "config", "--threshold", "45", "--output", "/srv/star"},
			contains: []string{"threshold_minutes: 45", "dir: /srv/star", "level: debug"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := runCLI(t, tt.args...)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestConfigCommand_InvalidOverride(t *testing.T) {
	path, _ := writeProject(t)

	_, stderr, err := runCLI(t, "-c", path, "config", "--threshold", "-5")
	require.Error(t, err)
	assert.Equal(t, exitFailure, exitCode(err))
	assert.Contains(t, stderr, "invalid configuration")
}

func TestRunCommand(t *testing.T) {
	tests := []struct {
		name      string
		command   string
		published bool
	}{
		{name: "run", command: "run", published: true},
		{name: "validate", command: "validate", published: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, outDir := writeProject(t)

			out, _, err := runCLI(t, "-c", path, tt.command)
			require.NoError(t, err)
			assert.Contains(t, out, "completed")
			assert.Contains(t, out, "fact_attendance")

			_, statErr := os.Stat(filepath.Join(outDir, "current", "fact_attendance.csv"))
			assert.Equal(t, tt.published, statErr == nil)
		})
	}
}

func TestRunCommand_StructuralFailure(t *testing.T) {
	path, _ := writeProject(t)
	dir := filepath.Dir(path)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zoom", "Week 1", "06-Aug-2024.csv"),
		[]byte("Name (Original Name),User Email\nKofi,kofi@x.com\n"), 0644))

	out, _, err := runCLI(t, "-c", path, "run")
	require.Error(t, err)
	assert.Equal(t, exitStructural, exitCode(err))
	assert.Contains(t, out, "failed")
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "structural", err: apperrors.NewStructuralError("missing column", nil), want: exitStructural},
		{name: "wrapped structural", err: fmt.Errorf("load: %w", apperrors.NewStructuralError("missing column", nil)), want: exitStructural},
		{name: "publish", err: apperrors.NewPublishError("swap failed", nil), want: exitPublish},
		{name: "cancelled", err: operations.WrapError(context.Canceled, operations.StepIDLoad), want: exitCancelled},
		{name: "exit coder", err: cli.Exit("boom", 7), want: 7},
		{name: "other", err: errors.New("boom"), want: exitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestVersionCommand(t *testing.T) {
	out, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, contracts.GetVersionString())
	assert.Contains(t, out, "tables: "+contracts.DataFormatVersion)
}
