// Package shared provides common utilities and test helpers used across the
// pipeline packages.
//
// # Test Utilities
//
// The testutil subpackage provides:
//
//   - BufferedSlogHandler for asserting on structured log output
//   - Workbook and CSV fixture writers backed by an afero filesystem
//
// Example usage:
//
//	func TestLoad(t *testing.T) {
//	    fs := afero.NewMemMapFs()
//	    testutil.WriteWorkbook(t, fs, "/in/scores.xlsx",
//	        testutil.Sheet{Name: "Labs", Rows: [][]interface{}{{"email", "week1_lab"}}})
//	    logger, handler := testutil.NewTestLogger(t)
//	    // ...
//	}
package shared
