package quality

import (
	"sort"
	"sync"

	"github.com/samber/lo"

	"cohortetl/pkg/contracts/domain"
)

// Collector gathers rejected and flagged rows from every stage of a run.
// It is safe for concurrent use.
type Collector struct {
	mu   sync.Mutex
	rows []domain.RejectedRow
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{}
}

// Add records rows in the order given
func (c *Collector) Add(rows ...domain.RejectedRow) {
	if len(rows) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = append(c.rows, rows...)
}

// Len returns the number of collected rows
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rows)
}

// Rows returns a copy of the collected rows ordered by cohort, source kind,
// origin path, row and reason. Rows sharing all of these keep their insertion order.
func (c *Collector) Rows() []domain.RejectedRow {
	c.mu.Lock()
	out := make([]domain.RejectedRow, len(c.rows))
	copy(out, c.rows)
	c.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Cohort != b.Cohort {
			return a.Cohort < b.Cohort
		}
		if a.SourceKind != b.SourceKind {
			return a.SourceKind < b.SourceKind
		}
		if a.OriginPath != b.OriginPath {
			return a.OriginPath < b.OriginPath
		}
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Reason < b.Reason
	})
	return out
}

// CountsByReason returns the number of rows per reason code
func (c *Collector) CountsByReason() map[domain.ReasonCode]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lo.CountValuesBy(c.rows, func(r domain.RejectedRow) domain.ReasonCode { return r.Reason })
}

// Dropped returns how many collected rows were excluded from the output
func (c *Collector) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lo.CountBy(c.rows, func(r domain.RejectedRow) bool { return r.Dropped })
}
