package sources

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// parseCSV decodes data and reads it as a header row followed by data rows.
// Rows with a different number of fields than the header are padded or
// truncated; rows the csv reader rejects are skipped with a warning.
func parseCSV(data []byte, path string, logger *slog.Logger) (*table, error) {
	decoded, enc, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("encoding detection failed: %w", err)
	}
	if enc != "utf-8" {
		logger.Debug("Decoded attendance file",
			slog.String("path", path),
			slog.String("encoding", enc))
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &table{}, nil
		}
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	t := &table{headers: cleanHeaders(header)}
	for {
		values, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				line = perr.StartLine
			}
			logger.Warn("Skipping unparsable CSV row",
				slog.String("path", path),
				slog.Int("row", line),
				slog.String("error", err.Error()))
			continue
		}
		line, _ := reader.FieldPos(0)
		if len(values) != len(t.headers) {
			logger.Debug("Row width differs from header",
				slog.String("path", path),
				slog.Int("row", line),
				slog.Int("fields", len(values)),
				slog.Int("headers", len(t.headers)))
		}
		if row, ok := newRow(t.headers, values, line); ok {
			t.rows = append(t.rows, row)
		}
	}
	return t, nil
}
