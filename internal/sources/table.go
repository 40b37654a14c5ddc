package sources

import (
	"fmt"
	"strings"
)

// table is a header plus data rows read from one CSV file or worksheet
type table struct {
	headers []string
	rows    []tableRow
}

// tableRow is one data row keyed by header. line is the 1-based row number
// in the source, counting the header as row 1.
type tableRow struct {
	line   int
	fields map[string]string
}

// cleanHeaders trims header cells and makes them unique: a blank header
// becomes "column_N" and repeats get a numeric suffix ("Name", "Name_2").
func cleanHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		key := strings.ToLower(h)
		seen[key]++
		if n := seen[key]; n > 1 {
			h = fmt.Sprintf("%s_%d", h, n)
		}
		headers[i] = h
	}
	return headers
}

// newRow maps values onto headers, padding short rows with empty values and
// dropping cells beyond the last header. ok is false for rows whose cells are all blank.
func newRow(headers, values []string, line int) (tableRow, bool) {
	fields := make(map[string]string, len(headers))
	blank := true
	for i, h := range headers {
		v := ""
		if i < len(values) {
			v = strings.TrimSpace(values[i])
		}
		if v != "" {
			blank = false
		}
		fields[h] = v
	}
	return tableRow{line: line, fields: fields}, !blank
}

// hasColumn reports whether any of names is a header, ignoring case
func (t *table) hasColumn(names ...string) bool {
	for _, name := range names {
		for _, h := range t.headers {
			if strings.EqualFold(h, strings.TrimSpace(name)) {
				return true
			}
		}
	}
	return false
}
