package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/okidwi/chathub/internal/llm"
)

// ErrNoSuchMessage is returned by Regenerate when the index does not point
// at an assistant message with a preceding prompt.
var ErrNoSuchMessage = errors.New("no regenerable assistant message at index")

// TurnSink receives completed turns for durable archival. Archive failures
// are logged and never fail the turn.
type TurnSink interface {
	SaveTurn(ctx context.Context, entry HistoryEntry) error
}

// UsageRecorder receives per-turn timing and size measurements.
type UsageRecorder interface {
	RecordChatUsage(operation string, duration time.Duration, promptChars, replyChars int)
}

// Manager owns one conversation: the visible transcript and the durable
// history log. All methods are safe for concurrent use.
type Manager struct {
	mu sync.Mutex

	completer   llm.Completer
	model       string
	temperature float64
	window      int
	timeout     time.Duration
	logger      *slog.Logger
	usage       UsageRecorder
	archive     TurnSink
	clock       func() time.Time

	transcript []Message
	history    []HistoryEntry
}

// Option configures a Manager.
type Option func(*Manager)

// WithTemperature sets the sampling temperature for completion requests.
func WithTemperature(t float64) Option {
	return func(m *Manager) { m.temperature = t }
}

// WithWindow sets how many trailing transcript messages are sent as context.
func WithWindow(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.window = n
		}
	}
}

// WithRequestTimeout bounds each backend call. Expiry surfaces as
// llm.ErrBackendUnavailable. Zero means no timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithUsageRecorder wires a metrics collector.
func WithUsageRecorder(r UsageRecorder) Option {
	return func(m *Manager) { m.usage = r }
}

// WithArchive wires a durable sink that mirrors completed turns.
func WithArchive(sink TurnSink) Option {
	return func(m *Manager) { m.archive = sink }
}

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) { m.clock = clock }
}

// NewManager creates a conversation manager for the given backend and model.
func NewManager(completer llm.Completer, model string, opts ...Option) *Manager {
	m := &Manager{
		completer:   completer,
		model:       model,
		temperature: 0.7,
		window:      10,
		logger:      slog.Default(),
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Model returns the model name used for completions.
func (m *Manager) Model() string {
	return m.model
}

// Submit sends a user message and appends the assistant reply. Blank input
// (after trimming) is a silent no-op that returns (nil, nil); otherwise the
// text is appended exactly as given. On backend failure the transcript gets
// a fallback assistant message, no history entry is recorded, and the
// backend error is returned.
func (m *Manager) Submit(ctx context.Context, text string) (*Message, error) {
	// The trim is only a guard; the transcript keeps the original text.
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.transcript = append(m.transcript, Message{Role: RoleUser, Content: text})
	window := m.contextWindow()

	start := time.Now()
	reply, err := m.complete(ctx, window)
	elapsed := time.Since(start)

	if err != nil {
		m.logger.Error("chat submit failed", "model", m.model, "error", err)
		m.transcript = append(m.transcript, Message{
			Role:    RoleAssistant,
			Content: fmt.Sprintf("Sorry, I encountered an error: %v", err),
		})
		return nil, err
	}

	m.transcript = append(m.transcript, Message{Role: RoleAssistant, Content: reply})
	entry := newHistoryEntry(m.clock(), m.model, text, reply, elapsed)
	m.history = append(m.history, entry)
	m.recordTurn(ctx, "chat_submit", entry, elapsed, len(text), len(reply))

	msg := m.transcript[len(m.transcript)-1]
	return &msg, nil
}

// Regenerate replaces the assistant message at the given transcript index
// with a fresh completion. Only the immediately preceding message is sent as
// the prompt. On failure the original message is restored and the error
// returned.
func (m *Manager) Regenerate(ctx context.Context, index int) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if index <= 0 || index >= len(m.transcript) || m.transcript[index].Role != RoleAssistant {
		return nil, ErrNoSuchMessage
	}

	prompt := m.transcript[index-1]

	start := time.Now()
	reply, err := m.complete(ctx, []llm.Message{{Role: llm.Role(prompt.Role), Content: prompt.Content}})
	elapsed := time.Since(start)

	if err != nil {
		// The old message is only replaced on success, so a failed
		// re-fetch leaves the transcript exactly as it was.
		m.logger.Error("chat regenerate failed", "model", m.model, "index", index, "error", err)
		return nil, err
	}

	// Only the transcript changes: history entries are created by Submit
	// alone, so a regenerated reply never adds one.
	m.transcript[index] = Message{Role: RoleAssistant, Content: reply}
	m.recordUsage("chat_regenerate", elapsed, len(prompt.Content), len(reply))

	msg := m.transcript[index]
	return &msg, nil
}

// Clear empties the transcript. The history log is untouched.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transcript = nil
}

// ClearHistory empties the durable history log. The transcript is untouched.
func (m *Manager) ClearHistory() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = nil
}

// Transcript returns a copy of the visible transcript.
func (m *Manager) Transcript() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.transcript))
	copy(out, m.transcript)
	return out
}

// History returns a copy of the history log.
func (m *Manager) History() []HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]HistoryEntry, len(m.history))
	copy(out, m.history)
	return out
}

// complete calls the backend with the configured model, temperature, and
// optional timeout.
func (m *Manager) complete(ctx context.Context, messages []llm.Message) (string, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	return m.completer.Complete(ctx, m.model, messages, llm.Options{Temperature: m.temperature})
}

// contextWindow returns the trailing window of the transcript converted for
// the backend, oldest first. Caller holds the lock.
func (m *Manager) contextWindow() []llm.Message {
	start := 0
	if len(m.transcript) > m.window {
		start = len(m.transcript) - m.window
	}

	out := make([]llm.Message, 0, len(m.transcript)-start)
	for _, msg := range m.transcript[start:] {
		out = append(out, llm.Message{Role: llm.Role(msg.Role), Content: msg.Content})
	}
	return out
}

func (m *Manager) recordTurn(ctx context.Context, operation string, entry HistoryEntry, elapsed time.Duration, promptChars, replyChars int) {
	m.recordUsage(operation, elapsed, promptChars, replyChars)
	if m.archive != nil {
		if err := m.archive.SaveTurn(ctx, entry); err != nil {
			m.logger.Warn("archive write failed", "error", err)
		}
	}
}

func (m *Manager) recordUsage(operation string, elapsed time.Duration, promptChars, replyChars int) {
	if m.usage != nil {
		m.usage.RecordChatUsage(operation, elapsed, promptChars, replyChars)
	}
	m.logger.Debug("turn complete",
		"operation", operation,
		"model", m.model,
		"duration", elapsed,
		"reply_chars", replyChars,
	)
}
