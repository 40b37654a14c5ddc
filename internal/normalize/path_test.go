package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const weekPattern = `(?i)(?:^|/)(?:(?P<track>[^/]+)/)?week[ _-]?(?P<week>\d+)/`

func TestPathConvention_Parse(t *testing.T) {
	tests := []struct {
		rel   string
		track string
		week  int
	}{
		{"dataeng/week01/05-Aug-2024.csv", "dataeng", 1},
		{"Week 3/05-Aug-2024.csv", "", 3},
		{"2024/analytics/Week_12/x.csv", "analytics", 12},
		{"05-Aug-2024.csv", "", 0},
	}

	p := NewPathConvention(weekPattern)
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			track, week, err := p.Parse(tt.rel)
			require.NoError(t, err)
			assert.Equal(t, tt.track, track)
			assert.Equal(t, tt.week, week)
		})
	}
}

func TestPathConvention_Track(t *testing.T) {
	p := NewPathConvention(weekPattern)
	assert.Equal(t, "dataeng", p.Track("dataeng/week01/05-Aug-2024.csv", "data"))
	assert.Equal(t, "data", p.Track("Week 1/05-Aug-2024.csv", "data"))
}

func TestPathConvention_WithoutGroups(t *testing.T) {
	track, week, err := NewPathConvention(`week`).Parse("week1/x.csv")
	require.NoError(t, err)
	assert.Empty(t, track)
	assert.Zero(t, week)
}
