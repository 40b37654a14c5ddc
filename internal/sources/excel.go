package sources

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"
)

// workbook wraps an open spreadsheet read through afero
type workbook struct {
	path string
	file *excelize.File
}

func openWorkbook(fs afero.Fs, path string) (*workbook, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	wb, err := excelize.OpenReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook: %w", err)
	}
	return &workbook{path: path, file: wb}, nil
}

func (w *workbook) Close() error {
	return w.file.Close()
}

// sheet returns the name of the sheet matching name case-insensitively
// (surrounding spaces ignored), or "" when the workbook has none.
func (w *workbook) sheet(name string) string {
	for _, s := range w.file.GetSheetList() {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(name)) {
			return s
		}
	}
	return ""
}

// firstSheet returns the first visible sheet in workbook order
func (w *workbook) firstSheet() string {
	for _, s := range w.file.GetSheetList() {
		if visible, err := w.file.GetSheetVisible(s); err == nil && visible {
			return s
		}
	}
	if list := w.file.GetSheetList(); len(list) > 0 {
		return list[0]
	}
	return ""
}

// readSheet reads a worksheet as a table. The first non-empty row is the
// header. Cell values are read raw so dates arrive as serial numbers and
// scores without display formatting.
func (w *workbook) readSheet(sheet string) (*table, error) {
	rows, err := w.file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	t := &table{}
	for i, values := range rows {
		if t.headers == nil {
			if isBlank(values) {
				continue
			}
			t.headers = cleanHeaders(values)
			continue
		}
		if row, ok := newRow(t.headers, values, i+1); ok {
			t.rows = append(t.rows, row)
		}
	}
	return t, nil
}

func isBlank(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
