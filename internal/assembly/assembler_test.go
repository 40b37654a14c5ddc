package assembly

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cohortetl/pkg/contracts/domain"
)

func day(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func tables() Tables {
	return Tables{
		Learners: []domain.LearnerDim{{LearnerKey: "ama"}, {LearnerKey: "kofi"}},
		Dates:    []domain.CalendarDate{{Date: day("2024-08-05")}, {Date: day("2024-08-06")}},
		Weeks:    []domain.WeekDim{{WeekKey: "w1", WeekNumber: 1}},
		Attendance: []domain.AttendanceFact{
			{AttendanceID: "a1", LearnerKey: "ama", Date: day("2024-08-05"), WeekKey: "w1"},
			{AttendanceID: "a2", LearnerKey: "ghost", Date: day("2024-08-05"), WeekKey: "w1"},
			{AttendanceID: "a3", LearnerKey: "kofi", Date: day("2024-09-01"), WeekKey: "w1"},
			{AttendanceID: "a4", LearnerKey: "kofi", Date: day("2024-08-06"), WeekKey: "w9", WeekNumber: 9},
		},
		Assessments: []domain.AssessmentFact{
			{AssessmentID: "s1", LearnerKey: "ama", WeekKey: "w1"},
			{AssessmentID: "s2", LearnerKey: "ama", WeekKey: "w2", WeekNumber: 2},
		},
		Participation: []domain.ParticipationFact{
			{ParticipationID: "p1", LearnerKey: "kofi", Date: day("2024-08-06")},
			{ParticipationID: "p2", LearnerName: "Bob", Date: day("2024-08-06")},
			{ParticipationID: "p3", LearnerKey: "ghost", Date: day("2024-08-06")},
		},
		Rejected: []domain.RejectedRow{
			{Reason: domain.ReasonUnresolvedIdentity, Learner: "Bob", Dropped: true},
		},
	}
}

func TestAssemble_RemovesDanglingFacts(t *testing.T) {
	schema, orphans := NewAssembler(nil).Assemble(tables())

	assert.Zero(t, Dangling(schema))

	require.Len(t, schema.Attendance, 1)
	assert.Equal(t, "a1", schema.Attendance[0].AttendanceID)
	require.Len(t, schema.Assessments, 1)
	assert.Equal(t, "s1", schema.Assessments[0].AssessmentID)
	require.Len(t, schema.Participation, 1)
	assert.Equal(t, "p1", schema.Participation[0].ParticipationID)

	require.Len(t, orphans, 5, "unresolved participation is not reported twice")
	for _, r := range orphans {
		assert.Equal(t, domain.ReasonOrphanKey, r.Reason)
		assert.True(t, r.Dropped)
	}
	assert.Len(t, schema.Rejected, 6)
	assert.Equal(t, domain.ReasonUnresolvedIdentity, schema.Rejected[0].Reason)
}

func TestAssemble_OrphanTables(t *testing.T) {
	_, orphans := NewAssembler(nil).Assemble(tables())

	byTable := make(map[string]int)
	for _, r := range orphans {
		byTable[r.Table]++
	}
	assert.Equal(t, 3, byTable[domain.TableFactAttendance])
	assert.Equal(t, 1, byTable[domain.TableFactAssessment])
	assert.Equal(t, 1, byTable[domain.TableFactParticipation])
}

func TestAssemble_CleanInputUnchanged(t *testing.T) {
	in := tables()
	in.Attendance = in.Attendance[:1]
	in.Assessments = in.Assessments[:1]
	in.Participation = in.Participation[:1]

	schema, orphans := NewAssembler(nil).Assemble(in)
	assert.Empty(t, orphans)
	assert.Equal(t, in.Attendance, schema.Attendance)
	assert.Equal(t, in.Assessments, schema.Assessments)
	assert.Equal(t, in.Participation, schema.Participation)
	assert.Equal(t, 2, schema.Counts()[domain.TableDimLearner])
}

func TestDangling(t *testing.T) {
	s := &domain.StarSchema{
		Attendance: []domain.AttendanceFact{{LearnerKey: "x", Date: day("2024-01-01")}},
	}
	assert.Equal(t, 1, Dangling(s))
}
