package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// PathConvention reads the track and week encoded in an attendance file's
// path, e.g. "dataeng/week01/05-Aug-2024.csv" or "Week 3/05-Aug-2024.csv"
type PathConvention struct {
	re    *regexp.Regexp
	track int
	week  int
}

// NewPathConvention compiles a validated pattern with optional named groups
// "track" and "week"
func NewPathConvention(pattern string) *PathConvention {
	re := regexp.MustCompile(pattern)
	return &PathConvention{
		re:    re,
		track: re.SubexpIndex("track"),
		week:  re.SubexpIndex("week"),
	}
}

// Parse returns the track and week of a slash-separated relative path.
// Either is empty or zero when the path does not carry it.
func (p *PathConvention) Parse(rel string) (track string, week int, err error) {
	m := p.re.FindStringSubmatch(rel)
	if m == nil {
		return "", 0, nil
	}
	if p.track >= 0 {
		track = strings.TrimSpace(m[p.track])
	}
	if p.week >= 0 && m[p.week] != "" {
		week, err = strconv.Atoi(m[p.week])
		if err != nil {
			return "", 0, fmt.Errorf("invalid week %q in path", m[p.week])
		}
	}
	return track, week, nil
}

// Track returns the track of rel, or fallback when the path carries none
func (p *PathConvention) Track(rel, fallback string) string {
	if track, _, err := p.Parse(rel); err == nil && track != "" {
		return track
	}
	return fallback
}
