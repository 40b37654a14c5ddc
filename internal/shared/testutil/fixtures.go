package testutil

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// Sheet describes one worksheet of a generated workbook.
// The first row is the header.
type Sheet struct {
	Name string
	Rows [][]interface{}
}

// WriteWorkbook generates an .xlsx file at path on fs with the given sheets in order
func WriteWorkbook(t *testing.T, fs afero.Fs, path string, sheets ...Sheet) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", sheet.Name))
		} else {
			_, err := f.NewSheet(sheet.Name)
			require.NoError(t, err)
		}
		for r, row := range sheet.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			values := row
			require.NoError(t, f.SetSheetRow(sheet.Name, cell, &values))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, path, buf.Bytes(), 0644))
}

// WriteCSV writes rows as a CSV file at path on fs
func WriteCSV(t *testing.T, fs afero.Fs, path string, rows ...[]string) {
	t.Helper()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.WriteAll(rows))
	require.NoError(t, afero.WriteFile(fs, path, buf.Bytes(), 0644))
}

// ZoomRow builds one attendance export row in the default column order:
// Name, Email, Join Time, Leave Time, Duration
func ZoomRow(name, email, join, leave, duration string) []string {
	return []string{name, email, join, leave, duration}
}

// ZoomHeader is the header matching ZoomRow
var ZoomHeader = []string{"Name", "Email", "Join Time", "Leave Time", "Duration"}

// WeekColumn returns the wide assessment column name for week n
func WeekColumn(n int, kind string) string {
	return fmt.Sprintf("week%d_%s", n, kind)
}
