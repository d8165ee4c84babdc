package chat

import "time"

// timestampLayout is the human-readable format used in history entries and
// exports.
const timestampLayout = "2006-01-02 15:04:05"

// HistoryEntry is one completed turn in the durable history log. Optional
// fields are pointers so entries recorded by different operations can carry
// different columns; export unions the columns across all entries.
type HistoryEntry struct {
	Timestamp string `json:"timestamp"`
	Model     string `json:"model"`
	User      string `json:"user"`
	Assistant string `json:"assistant"`

	// ResponseLength is the assistant reply length in characters.
	ResponseLength *int `json:"response_length,omitempty"`

	// ResponseTime is the backend round-trip in seconds.
	ResponseTime *float64 `json:"response_time,omitempty"`
}

func newHistoryEntry(now time.Time, model, user, assistant string, elapsed time.Duration) HistoryEntry {
	length := len(assistant)
	seconds := elapsed.Seconds()
	return HistoryEntry{
		Timestamp:      now.Format(timestampLayout),
		Model:          model,
		User:           user,
		Assistant:      assistant,
		ResponseLength: &length,
		ResponseTime:   &seconds,
	}
}
