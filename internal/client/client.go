// Package client provides a Go client for the chathub server API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okidwi/chathub/internal/chat"
	"github.com/okidwi/chathub/internal/collab"
	"github.com/okidwi/chathub/internal/llm"
	"github.com/okidwi/chathub/internal/metrics"
)

// Client talks to a chathub server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client.
// If baseURL is empty, uses CHATHUB_SERVER_URL env var or defaults to localhost:8585.
// Timeout can be configured via CHATHUB_CLIENT_TIMEOUT env var (default 5m for slow models).
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("CHATHUB_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8585"
	}

	timeout := 5 * time.Minute
	if t := os.Getenv("CHATHUB_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// apiError is the server's JSON error envelope.
type apiError struct {
	Error string `json:"error"`
}

// do sends a request and decodes the JSON response into result. A nil body
// sends no payload; a nil result discards the response.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server error: %s", apiErr.Error)
		}
		return fmt.Errorf("server error: %s", resp.Status)
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Submit sends a chat message and returns the assistant reply. A blank
// message returns nil without a round trip being recorded server-side.
func (c *Client) Submit(ctx context.Context, message string) (*chat.Message, error) {
	var reply chat.Message
	err := c.do(ctx, http.MethodPost, "/api/chat/submit", map[string]string{"message": message}, &reply)
	if err != nil {
		return nil, err
	}
	if reply.Content == "" && reply.Role == "" {
		return nil, nil
	}
	return &reply, nil
}

// Regenerate replaces the assistant message at the given transcript index.
func (c *Client) Regenerate(ctx context.Context, index int) (*chat.Message, error) {
	var reply chat.Message
	err := c.do(ctx, http.MethodPost, "/api/chat/regenerate", map[string]int{"index": index}, &reply)
	if err != nil {
		return nil, err
	}
	return &reply, nil
}

// Transcript fetches the visible conversation.
func (c *Client) Transcript(ctx context.Context) ([]chat.Message, error) {
	var transcript []chat.Message
	err := c.do(ctx, http.MethodGet, "/api/chat/transcript", nil, &transcript)
	return transcript, err
}

// ClearChat empties the transcript.
func (c *Client) ClearChat(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/chat/clear", nil, nil)
}

// History fetches the durable history log.
func (c *Client) History(ctx context.Context) ([]chat.HistoryEntry, error) {
	var history []chat.HistoryEntry
	err := c.do(ctx, http.MethodGet, "/api/chat/history", nil, &history)
	return history, err
}

// ClearHistory empties the history log.
func (c *Client) ClearHistory(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/chat/history/clear", nil, nil)
}

// ExportHistory downloads the history log in the given format and returns
// the raw bytes plus the server-suggested filename.
func (c *Client) ExportHistory(ctx context.Context, format string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/chat/history/export?format="+url.QueryEscape(format), nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("server error: %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read export: %w", err)
	}

	filename := ""
	if disposition := resp.Header.Get("Content-Disposition"); disposition != "" {
		if i := strings.Index(disposition, `filename="`); i >= 0 {
			rest := disposition[i+len(`filename="`):]
			if j := strings.Index(rest, `"`); j >= 0 {
				filename = rest[:j]
			}
		}
	}
	return data, filename, nil
}

// CreateSession creates a collaboration session and makes it active.
func (c *Client) CreateSession(ctx context.Context, name, sessionType string, maxUsers int) (*collab.Session, error) {
	var session collab.Session
	err := c.do(ctx, http.MethodPost, "/api/collab/sessions", map[string]any{
		"name": name, "type": sessionType, "max_users": maxUsers,
	}, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// JoinSession adds a participant to a session.
func (c *Client) JoinSession(ctx context.Context, sessionID, name string) (*collab.Participant, error) {
	var participant collab.Participant
	err := c.do(ctx, http.MethodPost, "/api/collab/sessions/"+url.PathEscape(sessionID)+"/join",
		map[string]string{"name": name}, &participant)
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

// SendMessage posts to a session feed. An empty sessionID targets the
// active session.
func (c *Client) SendMessage(ctx context.Context, sessionID, user, text string) (*collab.Message, error) {
	var msg collab.Message
	err := c.do(ctx, http.MethodPost, "/api/collab/messages", map[string]string{
		"session_id": sessionID, "user": user, "text": text,
	}, &msg)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// Messages fetches a session feed.
func (c *Client) Messages(ctx context.Context, sessionID string) ([]collab.Message, error) {
	var messages []collab.Message
	err := c.do(ctx, http.MethodGet, "/api/collab/messages?session_id="+url.QueryEscape(sessionID), nil, &messages)
	return messages, err
}

// AddTask appends a task to a session list.
func (c *Client) AddTask(ctx context.Context, sessionID, description string) (*collab.Task, error) {
	var task collab.Task
	err := c.do(ctx, http.MethodPost, "/api/collab/tasks", map[string]string{
		"session_id": sessionID, "description": description,
	}, &task)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// CompleteTask marks a task done.
func (c *Client) CompleteTask(ctx context.Context, sessionID, taskID string) error {
	return c.do(ctx, http.MethodPost, "/api/collab/tasks/"+url.PathEscape(taskID)+"/complete",
		map[string]string{"session_id": sessionID}, nil)
}

// AssignTask sets a task assignee.
func (c *Client) AssignTask(ctx context.Context, sessionID, taskID, assignee string) error {
	return c.do(ctx, http.MethodPost, "/api/collab/tasks/"+url.PathEscape(taskID)+"/assign",
		map[string]string{"session_id": sessionID, "assignee": assignee}, nil)
}

// RemoveTask deletes a task.
func (c *Client) RemoveTask(ctx context.Context, sessionID, taskID string) error {
	return c.do(ctx, http.MethodPost, "/api/collab/tasks/"+url.PathEscape(taskID)+"/remove",
		map[string]string{"session_id": sessionID}, nil)
}

// Tasks fetches a session task list.
func (c *Client) Tasks(ctx context.Context, sessionID string) ([]collab.Task, error) {
	var tasks []collab.Task
	err := c.do(ctx, http.MethodGet, "/api/collab/tasks?session_id="+url.QueryEscape(sessionID), nil, &tasks)
	return tasks, err
}

// InviteLink fetches the shareable join URL for a session.
func (c *Client) InviteLink(ctx context.Context, sessionID string) (string, error) {
	var result struct {
		Link string `json:"link"`
	}
	err := c.do(ctx, http.MethodGet, "/api/collab/invite?session_id="+url.QueryEscape(sessionID), nil, &result)
	return result.Link, err
}

// ExportSession downloads a full session snapshot.
func (c *Client) ExportSession(ctx context.Context, sessionID string) (*collab.Session, error) {
	var session collab.Session
	err := c.do(ctx, http.MethodGet, "/api/collab/export?session_id="+url.QueryEscape(sessionID), nil, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Models lists the models installed on the backend.
func (c *Client) Models(ctx context.Context) ([]llm.ModelInfo, error) {
	var models []llm.ModelInfo
	err := c.do(ctx, http.MethodGet, "/api/models", nil, &models)
	return models, err
}

// Stats fetches the server metrics snapshot.
func (c *Client) Stats(ctx context.Context) (*metrics.Snapshot, error) {
	var snap metrics.Snapshot
	err := c.do(ctx, http.MethodGet, "/api/stats", nil, &snap)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// FeedEvent is one live message pushed from a session feed.
type FeedEvent struct {
	SessionID string         `json:"session_id"`
	Message   collab.Message `json:"message"`
}

// SubscribeFeed opens the session's WebSocket feed and invokes onMessage for
// each event until the context is cancelled or the connection drops.
func (c *Client) SubscribeFeed(ctx context.Context, sessionID string, onMessage func(FeedEvent) error) error {
	wsURL := c.baseURL
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)
	wsURL += "/ws/collab/" + url.PathEscape(sessionID)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("websocket connect: %w", err)
	}
	defer conn.Close()

	// Close the connection when the context ends so the read loop unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var event FeedEvent
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read feed: %w", err)
		}
		if err := onMessage(event); err != nil {
			return err
		}
	}
}
