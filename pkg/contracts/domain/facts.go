package domain

import "time"

// AssessmentType distinguishes labs from quizzes
type AssessmentType string

const (
	AssessmentLab  AssessmentType = "Lab"
	AssessmentQuiz AssessmentType = "Quiz"
)

// AttendanceFact is one learner's attendance of one session on one day
type AttendanceFact struct {
	AttendanceID    string    `json:"attendance_id" db:"attendance_id"`
	LearnerKey      string    `json:"learner_key" db:"learner_key"`
	Cohort          string    `json:"cohort" db:"cohort"`
	Track           string    `json:"track" db:"track"`
	Date            time.Time `json:"date" db:"date"`
	WeekNumber      int       `json:"week_number" db:"week_number"`
	WeekKey         string    `json:"week_key" db:"week_key"`
	DurationMinutes float64   `json:"duration_minutes" db:"duration_minutes"`
	Attended        bool      `json:"attended" db:"attended"`
	JoinTime        string    `json:"join_time,omitempty" db:"join_time"`
	LeaveTime       string    `json:"leave_time,omitempty" db:"leave_time"`
	Source          SourceRef `json:"-" db:"-"`
}

// DurationHours returns the duration expressed in hours
func (f AttendanceFact) DurationHours() float64 {
	return f.DurationMinutes / 60
}

// AssessmentFact is one learner's score for one lab or quiz in one week
type AssessmentFact struct {
	AssessmentID string         `json:"assessment_id" db:"assessment_id"`
	LearnerKey   string         `json:"learner_key" db:"learner_key"`
	Cohort       string         `json:"cohort" db:"cohort"`
	Track        string         `json:"track" db:"track"`
	WeekNumber   int            `json:"week_number" db:"week_number"`
	WeekKey      string         `json:"week_key" db:"week_key"`
	Type         AssessmentType `json:"type" db:"type"`
	Score        float64        `json:"score" db:"score"`
	Source       SourceRef      `json:"-" db:"-"`
}

// ParticipationFact records that a learner participated on a date.
// LearnerKey is empty for orphan rows whose learner could not be resolved.
type ParticipationFact struct {
	ParticipationID string    `json:"participation_id" db:"participation_id"`
	LearnerKey      string    `json:"learner_key" db:"learner_key"`
	Cohort          string    `json:"cohort" db:"cohort"`
	Date            time.Time `json:"date" db:"date"`
	LearnerName     string    `json:"learner_name,omitempty" db:"learner_name"`
	Source          SourceRef `json:"-" db:"-"`
}

// IsOrphan reports whether the fact has no resolved learner
func (f ParticipationFact) IsOrphan() bool {
	return f.LearnerKey == ""
}
