package operations

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cohortetl/internal/assembly"
	"cohortetl/internal/config"
	apperrors "cohortetl/internal/errors"
	"cohortetl/internal/exporter"
	"cohortetl/internal/shared/testutil"
	"cohortetl/pkg/contracts/domain"
)

// writeCohort lays out one cohort's sources under root
func writeCohort(t *testing.T, fs afero.Fs, root string) config.CohortConfig {
	t.Helper()

	testutil.WriteCSV(t, fs, root+"/zoom/Week 1/05-Aug-2024.csv",
		testutil.ZoomHeader,
		testutil.ZoomRow("Ama Owusu", "ama@x.com", "", "", "0:45:00"),
		testutil.ZoomRow("Kofi Boateng", "kofi@x.com", "", "", "0:20:00"),
	)
	testutil.WriteCSV(t, fs, root+"/zoom/Week 2/12-Aug-2024.csv",
		testutil.ZoomHeader,
		testutil.ZoomRow("Ama Owusu", "ama@x.com", "", "", "1:00:00"),
	)
	testutil.WriteWorkbook(t, fs, root+"/scores.xlsx",
		testutil.Sheet{Name: "Labs", Rows: [][]interface{}{
			{"email", testutil.WeekColumn(1, "lab"), testutil.WeekColumn(2, "lab")},
			{"ama@x.com", 85, 90},
			{"kofi@x.com", 70, nil},
		}},
		testutil.Sheet{Name: "Quizzes", Rows: [][]interface{}{
			{"email", testutil.WeekColumn(1, "quiz")},
			{"ama@x.com", nil},
		}},
	)
	testutil.WriteWorkbook(t, fs, root+"/participation.xlsx",
		testutil.Sheet{Name: "Sheet1", Rows: [][]interface{}{
			{"Date", "Participants"},
			{"2024-08-05", "Ama Owusu; Zed Nobody"},
		}},
	)
	testutil.WriteWorkbook(t, fs, root+"/status.xlsx",
		testutil.Sheet{Name: "Status", Rows: [][]interface{}{
			{"Name", "email", "Graduation Status", "Certification Status"},
			{"Ama Owusu", "ama@x.com", "Graduate", "Certified"},
			{"Kofi Boateng", "kofi@x.com", "", ""},
		}},
	)

	return config.CohortConfig{
		Name:              "Cohort 1",
		DefaultTrack:      "data",
		AttendanceDir:     root + "/zoom",
		AssessmentFile:    root + "/scores.xlsx",
		ParticipationFile: root + "/participation.xlsx",
		StatusFile:        root + "/status.xlsx",
	}
}

func pipelineConfig(t *testing.T, fs afero.Fs) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Output.Dir = "/out"
	cfg.Cohorts = []config.CohortConfig{writeCohort(t, fs, "/data/c1")}
	return cfg
}

func runPipeline(t *testing.T, fs afero.Fs, cfg *config.Config, mode RunMode, runID string) (*RunState, error) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	m := NewManager(NewSteps(cfg, fs, nil, logger), nil, logger)
	m.SetConfig(ForMode(mode))
	return m.Execute(context.Background(), RunRequest{ID: runID, Mode: mode}, cfg)
}

func TestPipeline_Run(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := pipelineConfig(t, fs)

	state, err := runPipeline(t, fs, cfg, ModeRun, "run-1")
	require.NoError(t, err)
	require.NotNil(t, state.Schema)

	s := state.Schema
	assert.Len(t, s.Learners, 2)
	assert.Len(t, s.Attendance, 3)
	assert.Len(t, s.Assessments, 3)
	assert.Len(t, s.Participation, 1)
	assert.Len(t, s.Dates, 8, "2024-08-05 through 2024-08-12")
	assert.Len(t, s.Weeks, 2)
	assert.Zero(t, assembly.Dangling(s))

	attended := 0
	for _, f := range s.Attendance {
		if f.Attended {
			attended++
		}
	}
	assert.Equal(t, 2, attended)

	reasons := state.Quality.CountsByReason()
	assert.Equal(t, 1, reasons[domain.ReasonUnresolvedIdentity])

	for _, l := range s.Learners {
		if l.Email == "ama@x.com" {
			assert.Equal(t, domain.StatusCertified, l.CurrentStatus)
		}
	}

	for _, table := range exporter.Tables(s) {
		exists, err := afero.Exists(fs, filepath.Join("/out", exporter.CurrentDir, table.FileName()))
		require.NoError(t, err)
		assert.True(t, exists, table.Name)
	}

	data, err := afero.ReadFile(fs, filepath.Join("/out", exporter.CurrentDir, exporter.ManifestFile))
	require.NoError(t, err)
	var manifest exporter.Manifest
	require.NoError(t, json.Unmarshal(data, &manifest))
	assert.Equal(t, "run-1", manifest.RunID)
	assert.Equal(t, []string{"Cohort 1"}, manifest.Cohorts)
	assert.Equal(t, 3, manifest.Tables[domain.TableFactAttendance])

	for _, id := range []string{StepIDLoad, StepIDResolve, StepIDTransform, StepIDStatus, StepIDDimensions, StepIDAssemble, StepIDPublish} {
		assert.Equal(t, StepStatusCompleted, state.GetStep(id).GetStatus(), id)
	}
}

func TestPipeline_Deterministic(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := pipelineConfig(t, fs)

	first, err := runPipeline(t, fs, cfg, ModeValidate, "a")
	require.NoError(t, err)
	second, err := runPipeline(t, fs, cfg, ModeValidate, "b")
	require.NoError(t, err)

	assert.Equal(t, first.Schema.Counts(), second.Schema.Counts())
	assert.Equal(t, first.Schema.Attendance, second.Schema.Attendance)
	assert.Equal(t, first.Schema.Assessments, second.Schema.Assessments)
	assert.Equal(t, first.Schema.Learners, second.Schema.Learners)
	assert.Equal(t, first.Schema.Rejected, second.Schema.Rejected)
}

func TestPipeline_ValidatePublishesNothing(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := pipelineConfig(t, fs)

	state, err := runPipeline(t, fs, cfg, ModeValidate, "dry")
	require.NoError(t, err)

	assert.NotNil(t, state.Schema)
	assert.Equal(t, StepStatusSkipped, state.GetStep(StepIDPublish).GetStatus())
	exists, err := afero.DirExists(fs, "/out")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPipeline_StructuralErrorPublishesNothing(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := pipelineConfig(t, fs)
	testutil.WriteCSV(t, fs, "/data/c1/zoom/Week 3/19-Aug-2024.csv",
		[]string{"Name", "Email"},
		[]string{"Ama Owusu", "ama@x.com"},
	)

	state, err := runPipeline(t, fs, cfg, ModeRun, "broken")
	require.Error(t, err)

	assert.True(t, apperrors.IsStructural(err))
	assert.Equal(t, RunStatusFailed, state.GetStatus())
	assert.Equal(t, StepStatusFailed, state.GetStep(StepIDLoad).GetStatus())
	assert.Equal(t, StepStatusSkipped, state.GetStep(StepIDPublish).GetStatus())
	exists, err := afero.DirExists(fs, "/out/current")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPipeline_RerunReplacesOutputs(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := pipelineConfig(t, fs)

	_, err := runPipeline(t, fs, cfg, ModeRun, "first")
	require.NoError(t, err)
	_, err = runPipeline(t, fs, cfg, ModeRun, "second")
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "/out/current/"+exporter.ManifestFile)
	require.NoError(t, err)
	var manifest exporter.Manifest
	require.NoError(t, json.Unmarshal(data, &manifest))
	assert.Equal(t, "second", manifest.RunID)
}

func TestSteps_ValidateMissingArtifacts(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := config.Default()
	logger, _ := testutil.NewTestLogger(t)
	state := NewRunState("v", ModeRun, cfg)

	for _, step := range NewSteps(cfg, fs, nil, logger) {
		err := step.Validate(state)
		require.Error(t, err, step.ID())
		var opErr *OperationError
		require.True(t, errors.As(err, &opErr))
		assert.Equal(t, ErrorTypeValidation, opErr.Type)
	}
}
