package normalize

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// DurationMinutes converts a duration cell to minutes.
// Accepted forms are "H:MM:SS", "MM:SS" and a bare number of minutes
// (optionally suffixed with "min", "mins" or "minutes").
func DurationMinutes(s string) (float64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		nums := make([]int, len(parts))
		for i, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil || n < 0 {
				return 0, fmt.Errorf("invalid duration %q", s)
			}
			nums[i] = n
		}
		switch len(nums) {
		case 3:
			if nums[1] > 59 || nums[2] > 59 {
				return 0, fmt.Errorf("invalid duration %q", s)
			}
			return float64(nums[0]*60+nums[1]) + float64(nums[2])/60, nil
		case 2:
			if nums[1] > 59 {
				return 0, fmt.Errorf("invalid duration %q", s)
			}
			return float64(nums[0]) + float64(nums[1])/60, nil
		default:
			return 0, fmt.Errorf("invalid duration %q", s)
		}
	}

	for _, suffix := range []string{"minutes", "mins", "min"} {
		if strings.HasSuffix(s, suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
			break
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return v, nil
}

// missingScores are cell values that mean "no submission"
var missingScores = map[string]bool{
	"": true, "null": true, "nan": true, "n/a": true, "na": true, "-": true, "none": true,
}

// Score parses an assessment score. ok is false when the cell means
// "no submission"; an error is returned for unparsable or negative values.
func Score(s string) (value float64, ok bool, err error) {
	s = strings.TrimSpace(s)
	if missingScores[strings.ToLower(s)] {
		return 0, false, nil
	}
	s = strings.TrimSuffix(strings.ReplaceAll(s, ",", ""), "%")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, fmt.Errorf("invalid score %q", s)
	}
	if v < 0 {
		return 0, false, fmt.Errorf("negative score %v", v)
	}
	return v, true, nil
}

// DateParser parses date cells using an ordered list of layouts
type DateParser struct {
	layouts []string
}

// NewDateParser creates a parser trying layouts in order
func NewDateParser(layouts []string) *DateParser {
	return &DateParser{layouts: layouts}
}

// Parse returns the calendar day of s at UTC midnight.
// Bare numbers in the spreadsheet serial range are read as Excel dates.
func (p *DateParser) Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range p.layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOnly(t), nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 1 && serial < 2958466 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return DateOnly(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// FromFilename parses the date encoded in a file's base name without extension,
// e.g. "Week 1/05-Aug-2024.csv" -> 2024-08-05.
func (p *DateParser) FromFilename(path string) (time.Time, error) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return p.Parse(stem)
}

// DateOnly truncates t to its calendar day at UTC midnight
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
