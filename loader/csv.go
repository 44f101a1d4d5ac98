package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"threadscope/models"
)

// maxCSVErrors is the number of bad rows tolerated before a load file is rejected
const maxCSVErrors = 5

// LoadCSV reads a litigation-support load file. Threading headers are not
// separate columns there; they are packed into column_history as
// "MSG-ID:<id>|IN-REPLY-TO:<id>|REFS:<id> <id>|FWD:true|EXTERNAL:true".
// A THREAD: segment is ignored; threads are rebuilt from the ids.
func LoadCSV(path string, opts Options) ([]models.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open load file %s: %w", path, err)
	}
	defer f.Close()

	return ReadCSV(f, opts)
}

// ReadCSV parses load-file rows from r
func ReadCSV(r io.Reader, opts Options) ([]models.RawMessage, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return []models.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read load file header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}

	field := func(record []string, name string) string {
		if idx, ok := columns[strings.ToLower(name)]; ok && idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}

	messages := []models.RawMessage{}
	row, failures := 0, 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, fmt.Errorf("failed to read load file: %w", err)
			}
			failures++
			opts.logger().Warn("Skipping load file row %d: %v", row, err)
			if failures > maxCSVErrors {
				return nil, fmt.Errorf("too many malformed load file rows (%d)", failures)
			}
			continue
		}

		raw := models.RawMessage{
			From:    field(record, "From"),
			To:      field(record, "To"),
			Cc:      field(record, "CC"),
			Subject: field(record, "Subject"),
			Date:    field(record, "DateSent"),
			Body:    field(record, "FullText"),
			Source:  field(record, "BegBates"),
		}
		applyColumnHistory(&raw, field(record, "column_history"))
		messages = append(messages, raw)
	}

	opts.logger().Debug("Read %d messages from load file (%d rows skipped)", len(messages), failures)
	return messages, nil
}

// applyColumnHistory copies the packed threading segments into raw
func applyColumnHistory(raw *models.RawMessage, history string) {
	for _, part := range strings.Split(history, "|") {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "MSG-ID:"):
			raw.MessageID = strings.TrimPrefix(part, "MSG-ID:")
		case strings.HasPrefix(part, "IN-REPLY-TO:"):
			raw.InReplyTo = strings.TrimPrefix(part, "IN-REPLY-TO:")
		case strings.HasPrefix(part, "REFS:"):
			refs := strings.TrimPrefix(part, "REFS:")
			if refs != "<>" {
				raw.References = strings.Fields(refs)
			}
		case part == "FWD:true":
			raw.Forward = true
		case part == "EXTERNAL:true":
			raw.External = true
		}
	}
}
