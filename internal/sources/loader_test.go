package sources

import (
	"context"
	"errors"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cohortetl/internal/config"
	apperrors "cohortetl/internal/errors"
	"cohortetl/internal/shared/testutil"
	"cohortetl/pkg/contracts/domain"
)

func cohortFixture(t *testing.T, fs afero.Fs, root, name string) config.CohortConfig {
	t.Helper()

	testutil.WriteCSV(t, fs, root+"/zoom/Week 1/05-Aug-2024.csv",
		testutil.ZoomHeader,
		testutil.ZoomRow("Ama Owusu", "ama@x.com", "08/05/2024 09:58:12 AM", "08/05/2024 10:43:12 AM", "0:45:00"),
		testutil.ZoomRow("Kofi Boateng", "", "", "", "0:20:00"),
	)
	testutil.WriteCSV(t, fs, root+"/zoom/Week 2/12-Aug-2024.csv",
		testutil.ZoomHeader,
		testutil.ZoomRow("Ama Owusu", "ama@x.com", "", "", "1:00:00"),
	)
	testutil.WriteWorkbook(t, fs, root+"/scores.xlsx",
		testutil.Sheet{Name: "Labs", Rows: [][]interface{}{
			{"email", "week1_lab", "week2_lab"},
			{"ama@x.com", 85, 90},
		}},
		testutil.Sheet{Name: "Quizzes", Rows: [][]interface{}{
			{"email", "week1_quiz"},
			{"ama@x.com", nil},
		}},
	)
	testutil.WriteWorkbook(t, fs, root+"/participation.xlsx",
		testutil.Sheet{Name: "Sheet1", Rows: [][]interface{}{
			{"Date", "Participants"},
			{"2024-08-05", "Ama Owusu; Kofi Boateng"},
		}},
	)
	testutil.WriteWorkbook(t, fs, root+"/status.xlsx",
		testutil.Sheet{Name: "Status", Rows: [][]interface{}{
			{"Name", "email", "Graduation Status", "Certification Status"},
			{"Ama Owusu", "ama@x.com", "Graduate", "Certified"},
		}},
	)

	return config.CohortConfig{
		Name:              name,
		DefaultTrack:      "data",
		AttendanceDir:     root + "/zoom",
		AssessmentFile:    root + "/scores.xlsx",
		ParticipationFile: root + "/participation.xlsx",
		StatusFile:        root + "/status.xlsx",
	}
}

func TestLoader_Load(t *testing.T) {
	fs := afero.NewMemMapFs()
	cohort := cohortFixture(t, fs, "/data/c1", "Cohort 1")
	logger, _ := testutil.NewTestLogger(t)

	batch, err := NewLoader(fs, config.Default(), logger).Load(context.Background(), cohort)
	require.NoError(t, err)

	attendance := batch.Kind(domain.SourceAttendance)
	require.Len(t, attendance, 3)
	first := attendance[0]
	assert.Equal(t, "Cohort 1", first.Cohort)
	assert.Equal(t, "data", first.Track)
	assert.Equal(t, "ama@x.com", first.Get("Email"))
	assert.Equal(t, "0:45:00", first.Get("duration"))
	assert.Equal(t, "/data/c1/zoom/Week 1/05-Aug-2024.csv", first.OriginPath)
	assert.Equal(t, "Week 1/05-Aug-2024.csv", first.RelPath())
	assert.Equal(t, 2, first.Row)
	assert.Equal(t, "Week 2/12-Aug-2024.csv", attendance[2].RelPath())

	labs := batch.Kind(domain.SourceLab)
	require.Len(t, labs, 1)
	assert.Equal(t, "Labs", labs[0].Sheet)
	assert.Equal(t, "85", labs[0].Get("week1_lab"))

	quizzes := batch.Kind(domain.SourceQuiz)
	require.Len(t, quizzes, 1)
	assert.Equal(t, "", quizzes[0].Get("week1_quiz"))

	participation := batch.Kind(domain.SourceParticipation)
	require.Len(t, participation, 1)
	assert.Equal(t, "Ama Owusu; Kofi Boateng", participation[0].Get("Participants"))

	status := batch.Kind(domain.SourceStatus)
	require.Len(t, status, 1)
	assert.Equal(t, "Certified", status[0].Get("Certification Status"))

	assert.Equal(t, 7, batch.Len())
}

func TestLoader_LoadAll_DeterministicOrder(t *testing.T) {
	fs := afero.NewMemMapFs()
	c1 := cohortFixture(t, fs, "/data/c1", "Cohort 1")
	c2 := cohortFixture(t, fs, "/data/c2", "Cohort 2")
	loader := NewLoader(fs, config.Default(), nil).WithConcurrency(8)

	for i := 0; i < 5; i++ {
		batch, err := loader.LoadAll(context.Background(), []config.CohortConfig{c1, c2})
		require.NoError(t, err)

		attendance := batch.Kind(domain.SourceAttendance)
		require.Len(t, attendance, 6)
		for j, rec := range attendance {
			want := "Cohort 1"
			if j >= 3 {
				want = "Cohort 2"
			}
			assert.Equal(t, want, rec.Cohort)
		}
	}
}

func TestLoader_AssessmentFallsBackToFirstSheet(t *testing.T) {
	fs := afero.NewMemMapFs()
	testutil.WriteWorkbook(t, fs, "/in/scores.xlsx",
		testutil.Sheet{Name: "Scores", Rows: [][]interface{}{
			{},
			{"Email", "Week 1 Lab", "Week 1 Quiz"},
			{"a@x.com", 85, ""},
		}},
	)
	cohort := config.CohortConfig{Name: "C1", AssessmentFile: "/in/scores.xlsx"}

	batch, err := NewLoader(fs, config.Default(), nil).Load(context.Background(), cohort)
	require.NoError(t, err)

	labs := batch.Kind(domain.SourceLab)
	require.Len(t, labs, 1)
	assert.Equal(t, "Scores", labs[0].Sheet)
	assert.Equal(t, 3, labs[0].Row)
	assert.Empty(t, batch.Kind(domain.SourceQuiz))
}

func TestLoader_StructuralErrors(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T, fs afero.Fs) config.CohortConfig
		errors int
	}{
		{
			name: "missing attendance directory",
			setup: func(t *testing.T, fs afero.Fs) config.CohortConfig {
				return config.CohortConfig{Name: "C1", AttendanceDir: "/nope"}
			},
			errors: 1,
		},
		{
			name: "every bad attendance file is reported",
			setup: func(t *testing.T, fs afero.Fs) config.CohortConfig {
				testutil.WriteCSV(t, fs, "/z/Week 1/05-Aug-2024.csv", []string{"Name", "Email"}, []string{"Ama", "a@x.com"})
				testutil.WriteCSV(t, fs, "/z/Week 1/06-Aug-2024.csv", []string{"Duration"}, []string{"0:45:00"})
				testutil.WriteCSV(t, fs, "/z/Week 1/07-Aug-2024.csv", testutil.ZoomHeader, testutil.ZoomRow("Ama", "", "", "", "1"))
				return config.CohortConfig{Name: "C1", AttendanceDir: "/z"}
			},
			errors: 2,
		},
		{
			name: "missing assessment workbook",
			setup: func(t *testing.T, fs afero.Fs) config.CohortConfig {
				return config.CohortConfig{Name: "C1", AssessmentFile: "/in/none.xlsx"}
			},
			errors: 1,
		},
		{
			name: "assessment without week columns",
			setup: func(t *testing.T, fs afero.Fs) config.CohortConfig {
				testutil.WriteWorkbook(t, fs, "/in/scores.xlsx",
					testutil.Sheet{Name: "Labs", Rows: [][]interface{}{{"email", "total"}, {"a@x.com", 1}}})
				return config.CohortConfig{Name: "C1", AssessmentFile: "/in/scores.xlsx"}
			},
			errors: 1,
		},
		{
			name: "participation without date and participant columns",
			setup: func(t *testing.T, fs afero.Fs) config.CohortConfig {
				testutil.WriteWorkbook(t, fs, "/in/p.xlsx",
					testutil.Sheet{Name: "Sheet1", Rows: [][]interface{}{{"Day", "Who"}, {"x", "y"}}})
				return config.CohortConfig{Name: "C1", ParticipationFile: "/in/p.xlsx"}
			},
			errors: 2,
		},
		{
			name: "status without email or name column",
			setup: func(t *testing.T, fs afero.Fs) config.CohortConfig {
				testutil.WriteWorkbook(t, fs, "/in/s.xlsx",
					testutil.Sheet{Name: "Sheet1", Rows: [][]interface{}{{"Learner ID", "Status"}, {"L-001", "Active"}}})
				return config.CohortConfig{Name: "C1", StatusFile: "/in/s.xlsx"}
			},
			errors: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			cohort := tt.setup(t, fs)

			batch, err := NewLoader(fs, config.Default(), nil).Load(context.Background(), cohort)
			require.Error(t, err)
			assert.Nil(t, batch)
			assert.True(t, apperrors.IsStructural(err), "got %v", err)

			var merr *multierror.Error
			require.True(t, errors.As(err, &merr))
			assert.Len(t, merr.Errors, tt.errors)
		})
	}
}

func TestLoader_NameOnlyStatusSheet(t *testing.T) {
	fs := afero.NewMemMapFs()
	testutil.WriteWorkbook(t, fs, "/in/s.xlsx",
		testutil.Sheet{Name: "Sheet1", Rows: [][]interface{}{
			{"Name", "Graduation Status", "Certification Status"},
			{"Ama Owusu", "Graduate", "Certified"},
		}})

	batch, err := NewLoader(fs, config.Default(), nil).Load(context.Background(),
		config.CohortConfig{Name: "C1", StatusFile: "/in/s.xlsx"})
	require.NoError(t, err)

	status := batch.Kind(domain.SourceStatus)
	require.Len(t, status, 1)
	assert.Equal(t, "Ama Owusu", status[0].Get("Name"))
	assert.Empty(t, status[0].Get("email"))
}

func TestLoader_MissingConfiguredSheet(t *testing.T) {
	fs := afero.NewMemMapFs()
	testutil.WriteWorkbook(t, fs, "/in/s.xlsx",
		testutil.Sheet{Name: "Sheet1", Rows: [][]interface{}{{"email"}, {"a@x.com"}}})
	cfg := config.Default()
	cfg.Status.Sheet = "Learners"

	_, err := NewLoader(fs, cfg, nil).Load(context.Background(), config.CohortConfig{Name: "C1", StatusFile: "/in/s.xlsx"})
	require.Error(t, err)
	assert.True(t, apperrors.IsStructural(err))
	assert.Contains(t, err.Error(), `sheet "Learners" not found`)
}

func TestLoader_Cancelled(t *testing.T) {
	fs := afero.NewMemMapFs()
	cohort := cohortFixture(t, fs, "/data/c1", "Cohort 1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch, err := NewLoader(fs, config.Default(), nil).Load(ctx, cohort)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, batch)
}
