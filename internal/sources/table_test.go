package sources

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanHeaders(t *testing.T) {
	got := cleanHeaders([]string{"\ufeffName ", "Email", "", "name", "Duration"})
	assert.Equal(t, []string{"Name", "Email", "column_3", "name_2", "Duration"}, got)
}

func TestParseCSV(t *testing.T) {
	data := []byte("Name,Email,Duration\n" +
		"Ama Owusu,ama@x.com,0:45:00\n" +
		",,\n" +
		"Kofi,,20,extra\n" +
		"Short\n")

	tbl, err := parseCSV(data, "05-Aug-2024.csv", slog.Default())
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "Email", "Duration"}, tbl.headers)
	require.Len(t, tbl.rows, 3, "blank row skipped")

	assert.Equal(t, 2, tbl.rows[0].line)
	assert.Equal(t, "ama@x.com", tbl.rows[0].fields["Email"])
	assert.Equal(t, 4, tbl.rows[1].line)
	assert.Equal(t, "20", tbl.rows[1].fields["Duration"])
	assert.Equal(t, "", tbl.rows[2].fields["Duration"], "short row padded")

	assert.True(t, tbl.hasColumn("duration"))
	assert.False(t, tbl.hasColumn("Join Time"))
}

func TestParseCSV_Empty(t *testing.T) {
	tbl, err := parseCSV(nil, "empty.csv", slog.Default())
	require.NoError(t, err)
	assert.Empty(t, tbl.headers)
	assert.Empty(t, tbl.rows)
}
