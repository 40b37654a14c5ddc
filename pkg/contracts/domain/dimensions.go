package domain

import "time"

// DateLayout is the canonical date format of every published table
const DateLayout = "2006-01-02"

// CalendarDate is one row of dim_date
type CalendarDate struct {
	Date          time.Time `json:"date" db:"date"`
	DateKey       int       `json:"date_key" db:"date_key"`
	Year          int       `json:"year" db:"year"`
	Month         int       `json:"month" db:"month"`
	MonthName     string    `json:"month_name" db:"month_name"`
	Day           int       `json:"day" db:"day"`
	DayName       string    `json:"day_name" db:"day_name"`
	DayOfWeek     int       `json:"day_of_week" db:"day_of_week"`
	WeekOfYear    int       `json:"week_of_year" db:"week_of_year"`
	WeekNumber    int       `json:"week_number" db:"week_number"`
	IsWeekend     bool      `json:"is_weekend" db:"is_weekend"`
	IsBusinessDay bool      `json:"is_business_day" db:"is_business_day"`
}

// WeekDim is one row of dim_week
type WeekDim struct {
	WeekKey    string    `json:"week_key" db:"week_key"`
	WeekNumber int       `json:"week_number" db:"week_number"`
	Cohort     string    `json:"cohort" db:"cohort"`
	Track      string    `json:"track" db:"track"`
	StartDate  time.Time `json:"start_date" db:"start_date"`
	EndDate    time.Time `json:"end_date" db:"end_date"`
	Label      string    `json:"label" db:"label"`
}

// LearnerDim is one row of dim_learner: identity merged with status
type LearnerDim struct {
	LearnerKey          string        `json:"learner_key" db:"learner_key"`
	Email               string        `json:"email" db:"email"`
	DisplayName         string        `json:"display_name" db:"display_name"`
	Cohort              string        `json:"cohort" db:"cohort"`
	Track               string        `json:"track" db:"track"`
	EnrollmentDate      time.Time     `json:"enrollment_date" db:"enrollment_date"`
	Graduated           bool          `json:"graduated" db:"graduated"`
	Certified           bool          `json:"certified" db:"certified"`
	CurrentStatus       CurrentStatus `json:"current_status" db:"current_status"`
	GraduationStatus    string        `json:"graduation_status" db:"graduation_status"`
	CertificationStatus string        `json:"certification_status" db:"certification_status"`
	UnresolvedEmail     bool          `json:"unresolved_email" db:"unresolved_email"`
}

// StarSchema is the complete published output of one refresh
type StarSchema struct {
	Learners      []LearnerDim        `json:"dim_learner"`
	Dates         []CalendarDate      `json:"dim_date"`
	Weeks         []WeekDim           `json:"dim_week"`
	Attendance    []AttendanceFact    `json:"fact_attendance"`
	Assessments   []AssessmentFact    `json:"fact_assessment"`
	Participation []ParticipationFact `json:"fact_participation"`
	Rejected      []RejectedRow       `json:"rejected_rows"`
}

// Table names as published
const (
	TableDimLearner        = "dim_learner"
	TableDimDate           = "dim_date"
	TableDimWeek           = "dim_week"
	TableFactAttendance    = "fact_attendance"
	TableFactAssessment    = "fact_assessment"
	TableFactParticipation = "fact_participation"
	TableRejectedRows      = "rejected_rows"
)

// Counts returns the row count of every table
func (s *StarSchema) Counts() map[string]int {
	return map[string]int{
		TableDimLearner:        len(s.Learners),
		TableDimDate:           len(s.Dates),
		TableDimWeek:           len(s.Weeks),
		TableFactAttendance:    len(s.Attendance),
		TableFactAssessment:    len(s.Assessments),
		TableFactParticipation: len(s.Participation),
		TableRejectedRows:      len(s.Rejected),
	}
}
