package chat

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// ExportFilename returns a timestamped download name for a history export,
// e.g. "chat_history_20250614_093012.csv".
func ExportFilename(format string, now time.Time) string {
	return fmt.Sprintf("chat_history_%s.%s", now.Format("20060102_150405"), format)
}

// Export renders the history log in the given format.
func (m *Manager) Export(format string) ([]byte, error) {
	entries := m.History()

	switch format {
	case FormatCSV:
		return exportCSV(entries)
	case FormatJSON:
		return json.MarshalIndent(entries, "", "  ")
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// exportCSV writes one row per entry. The header is the union of columns
// present across all entries, in canonical order; rows missing an optional
// column get "N/A".
func exportCSV(entries []HistoryEntry) ([]byte, error) {
	hasLength := false
	hasTime := false
	for _, e := range entries {
		if e.ResponseLength != nil {
			hasLength = true
		}
		if e.ResponseTime != nil {
			hasTime = true
		}
	}

	header := []string{"timestamp", "model", "user", "assistant"}
	if hasLength {
		header = append(header, "response_length")
	}
	if hasTime {
		header = append(header, "response_time")
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for _, e := range entries {
		row := []string{e.Timestamp, e.Model, e.User, e.Assistant}
		if hasLength {
			row = append(row, optionalInt(e.ResponseLength))
		}
		if hasTime {
			row = append(row, optionalFloat(e.ResponseTime))
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func optionalInt(v *int) string {
	if v == nil {
		return "N/A"
	}
	return strconv.Itoa(*v)
}

func optionalFloat(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
