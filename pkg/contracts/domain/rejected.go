package domain

// ReasonCode classifies why a row was rejected or flagged
type ReasonCode string

const (
	ReasonMissingDate        ReasonCode = "missing_date"
	ReasonUnresolvedIdentity ReasonCode = "unresolved_identity"
	ReasonOrphanKey          ReasonCode = "orphan_key"
	ReasonAmbiguousMapping   ReasonCode = "ambiguous_mapping"
	ReasonMissingIdentifier  ReasonCode = "missing_identifier"
	ReasonInvalidValue       ReasonCode = "invalid_value"
)

// RejectedRow is one entry of the rejected-rows report.
// Flagged rows stay in the output; Dropped rows do not.
type RejectedRow struct {
	Reason     ReasonCode `json:"reason"`
	Table      string     `json:"table,omitempty"`
	SourceKind SourceKind `json:"source_kind,omitempty"`
	Cohort     string     `json:"cohort,omitempty"`
	OriginPath string     `json:"origin_path,omitempty"`
	Row        int        `json:"row,omitempty"`
	Learner    string     `json:"learner,omitempty"`
	Detail     string     `json:"detail"`
	Dropped    bool       `json:"dropped"`
}

// NewRejectedRow builds a dropped-row entry pointing at a raw source row
func NewRejectedRow(reason ReasonCode, ref SourceRef, learner, detail string) RejectedRow {
	return RejectedRow{
		Reason:     reason,
		SourceKind: ref.SourceKind,
		Cohort:     ref.Cohort,
		OriginPath: ref.OriginPath,
		Row:        ref.Row,
		Learner:    learner,
		Detail:     detail,
		Dropped:    true,
	}
}
