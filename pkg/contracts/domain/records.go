package domain

import (
	"path/filepath"
	"strings"
)

// SourceKind identifies which raw source a record came from
type SourceKind string

const (
	SourceAttendance    SourceKind = "attendance"
	SourceLab           SourceKind = "lab"
	SourceQuiz          SourceKind = "quiz"
	SourceParticipation SourceKind = "participation"
	SourceStatus        SourceKind = "status"
)

// AllSourceKinds lists the kinds in load order
var AllSourceKinds = []SourceKind{
	SourceAttendance,
	SourceLab,
	SourceQuiz,
	SourceParticipation,
	SourceStatus,
}

// RawRecord is one row read from a source file, before any normalization.
// Field names are the header text of the source with surrounding whitespace removed.
type RawRecord struct {
	SourceKind SourceKind        `json:"source_kind"`
	Cohort     string            `json:"cohort"`
	Track      string            `json:"track,omitempty"`
	Fields     map[string]string `json:"raw_fields"`
	OriginPath string            `json:"origin_path"`
	Root       string            `json:"-"`
	Sheet      string            `json:"sheet,omitempty"`
	Row        int               `json:"row"`
}

// RelPath returns OriginPath relative to the directory the record was
// discovered under, slash-separated. Without a Root the origin path is used.
func (r RawRecord) RelPath() string {
	if r.Root != "" {
		if rel, err := filepath.Rel(r.Root, r.OriginPath); err == nil {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(r.OriginPath)
}

// Get returns the value of the first column that matches one of names.
// Matching ignores case and surrounding whitespace.
func (r RawRecord) Get(names ...string) string {
	for _, name := range names {
		if v, ok := r.Fields[name]; ok {
			return v
		}
	}
	for _, name := range names {
		for k, v := range r.Fields {
			if strings.EqualFold(strings.TrimSpace(k), strings.TrimSpace(name)) {
				return v
			}
		}
	}
	return ""
}

// Has reports whether any of names is a column of the record
func (r RawRecord) Has(names ...string) bool {
	for _, name := range names {
		for k := range r.Fields {
			if strings.EqualFold(strings.TrimSpace(k), strings.TrimSpace(name)) {
				return true
			}
		}
	}
	return false
}

// SourceRef points back to the raw row a derived value came from
type SourceRef struct {
	SourceKind SourceKind `json:"source_kind"`
	Cohort     string     `json:"cohort"`
	OriginPath string     `json:"origin_path"`
	Row        int        `json:"row"`
}

// Ref builds the SourceRef for a raw record
func (r RawRecord) Ref() SourceRef {
	return SourceRef{
		SourceKind: r.SourceKind,
		Cohort:     r.Cohort,
		OriginPath: r.OriginPath,
		Row:        r.Row,
	}
}

// Batch holds every raw record loaded for one refresh, grouped by kind
type Batch struct {
	Records map[SourceKind][]RawRecord
}

// NewBatch creates an empty batch
func NewBatch() *Batch {
	return &Batch{Records: make(map[SourceKind][]RawRecord)}
}

// Add appends records of the given kind
func (b *Batch) Add(kind SourceKind, records ...RawRecord) {
	b.Records[kind] = append(b.Records[kind], records...)
}

// Kind returns the records of one kind
func (b *Batch) Kind(kind SourceKind) []RawRecord {
	return b.Records[kind]
}

// Merge appends all records of other into b, preserving order
func (b *Batch) Merge(other *Batch) {
	if other == nil {
		return
	}
	for _, kind := range AllSourceKinds {
		b.Add(kind, other.Records[kind]...)
	}
}

// Len returns the total number of records
func (b *Batch) Len() int {
	n := 0
	for _, recs := range b.Records {
		n += len(recs)
	}
	return n
}
