package exporter

import (
	"encoding/json"
	"time"

	"cohortetl/pkg/contracts"
	"cohortetl/pkg/contracts/domain"
)

// ManifestFile is written next to the tables of every published run
const ManifestFile = "run_manifest.json"

// Manifest summarizes one refresh
type Manifest struct {
	FormatVersion    string                    `json:"format_version"`
	ToolVersion      string                    `json:"tool_version"`
	RunID            string                    `json:"run_id"`
	StartedAt        time.Time                 `json:"started_at"`
	FinishedAt       time.Time                 `json:"finished_at"`
	ThresholdMinutes float64                   `json:"threshold_minutes"`
	Cohorts          []string                  `json:"cohorts"`
	Tables           map[string]int            `json:"tables"`
	Rejections       map[domain.ReasonCode]int `json:"rejections"`
	Dropped          int                       `json:"dropped"`
	Flagged          int                       `json:"flagged"`
}

// NewManifest fills the table and rejection counts from the schema
func NewManifest(runID string, started time.Time, threshold float64, cohorts []string, s *domain.StarSchema) Manifest {
	m := Manifest{
		FormatVersion:    contracts.DataFormatVersion,
		ToolVersion:      contracts.Version,
		RunID:            runID,
		StartedAt:        started,
		ThresholdMinutes: threshold,
		Cohorts:          cohorts,
		Tables:           s.Counts(),
		Rejections:       make(map[domain.ReasonCode]int),
	}
	for _, r := range s.Rejected {
		m.Rejections[r.Reason]++
		if r.Dropped {
			m.Dropped++
		} else {
			m.Flagged++
		}
	}
	return m
}

// Marshal renders the manifest as indented JSON
func (m Manifest) Marshal() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}
