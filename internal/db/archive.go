package db

import (
	"context"
	"fmt"
	"time"

	"github.com/okidwi/chathub/internal/chat"
	"github.com/okidwi/chathub/internal/collab"
	"github.com/okidwi/chathub/internal/metrics"
	"github.com/surrealdb/surrealdb.go"
)

// TurnRecord is an archived chat turn as stored in the chat_turn table.
type TurnRecord struct {
	Timestamp      string   `json:"timestamp"`
	Model          string   `json:"model"`
	User           string   `json:"user"`
	Assistant      string   `json:"assistant"`
	ResponseLength *int     `json:"response_length,omitempty"`
	ResponseTime   *float64 `json:"response_time,omitempty"`
}

// Archive mirrors completed chat turns and collaboration session snapshots
// into SurrealDB. It is write-only from the application's point of view; the
// in-memory state stays authoritative.
type Archive struct {
	client  *Client
	metrics *metrics.Collector
}

// NewArchive creates an archive on top of an established connection. The
// collector may be nil.
func NewArchive(client *Client, collector *metrics.Collector) *Archive {
	return &Archive{client: client, metrics: collector}
}

// SaveTurn stores one completed turn.
func (a *Archive) SaveTurn(ctx context.Context, entry chat.HistoryEntry) error {
	start := time.Now()

	record := TurnRecord{
		Timestamp:      entry.Timestamp,
		Model:          entry.Model,
		User:           entry.User,
		Assistant:      entry.Assistant,
		ResponseLength: entry.ResponseLength,
		ResponseTime:   entry.ResponseTime,
	}

	_, err := surrealdb.Query[any](ctx, a.client.db,
		"CREATE chat_turn CONTENT $turn",
		map[string]any{"turn": record},
	)
	if err != nil {
		return fmt.Errorf("archive turn: %w", err)
	}

	if a.metrics != nil {
		a.metrics.RecordTiming(metrics.OpArchiveWrite, time.Since(start))
	}
	return nil
}

// ListTurns returns the most recently archived turns, newest first.
func (a *Archive) ListTurns(ctx context.Context, limit int) ([]TurnRecord, error) {
	results, err := surrealdb.Query[[]TurnRecord](ctx, a.client.db,
		"SELECT timestamp, model, user, assistant, response_length, response_time FROM chat_turn ORDER BY archived DESC LIMIT $limit",
		map[string]any{"limit": limit},
	)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}

	if results != nil && len(*results) > 0 {
		return (*results)[0].Result, nil
	}
	return []TurnRecord{}, nil
}

// SaveSessionSnapshot stores a point-in-time copy of a collaboration session.
func (a *Archive) SaveSessionSnapshot(ctx context.Context, session *collab.Session) error {
	start := time.Now()

	_, err := surrealdb.Query[any](ctx, a.client.db,
		"CREATE collab_session CONTENT { session_id: $id, name: $name, type: $type, snapshot: $snapshot }",
		map[string]any{
			"id":       session.ID,
			"name":     session.Name,
			"type":     session.Type,
			"snapshot": session,
		},
	)
	if err != nil {
		return fmt.Errorf("archive session: %w", err)
	}

	if a.metrics != nil {
		a.metrics.RecordTiming(metrics.OpArchiveWrite, time.Since(start))
	}
	return nil
}
