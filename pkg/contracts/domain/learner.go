package domain

import "time"

// LearnerIdentity is the canonical form of one learner within one cohort.
// Several identities (one per cohort) may share a LearnerKey when the same
// email enrolls more than once.
type LearnerIdentity struct {
	LearnerKey      string    `json:"learner_key" validate:"required"`
	Email           string    `json:"email,omitempty"`
	DisplayName     string    `json:"display_name"`
	Cohort          string    `json:"cohort" validate:"required"`
	Track           string    `json:"track,omitempty"`
	EnrollmentDate  time.Time `json:"enrollment_date,omitempty"`
	UnresolvedEmail bool      `json:"unresolved_email"`
}

// CurrentStatus is the derived lifecycle state of a learner
type CurrentStatus string

const (
	StatusActive    CurrentStatus = "Active"
	StatusGraduated CurrentStatus = "Graduated"
	StatusCertified CurrentStatus = "Certified"
	StatusWithdrawn CurrentStatus = "Withdrawn"
	StatusUnknown   CurrentStatus = "Unknown"
)

// Priority orders statuses for conflict resolution; higher wins
func (s CurrentStatus) Priority() int {
	switch s {
	case StatusCertified:
		return 4
	case StatusGraduated:
		return 3
	case StatusWithdrawn:
		return 2
	case StatusActive:
		return 1
	default:
		return 0
	}
}

// LearnerStatus is the merged status of one learner across all cohorts
type LearnerStatus struct {
	LearnerKey          string        `json:"learner_key"`
	Graduated           bool          `json:"graduated"`
	Certified           bool          `json:"certified"`
	CurrentStatus       CurrentStatus `json:"current_status"`
	GraduationStatus    string        `json:"graduation_status,omitempty"`
	CertificationStatus string        `json:"certification_status,omitempty"`
	EnrollmentDate      time.Time     `json:"enrollment_date,omitempty"`
	Track               string        `json:"track,omitempty"`
}
