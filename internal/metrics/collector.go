// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sync"
	"time"
)

// OperationMetrics holds aggregated metrics for a single operation type.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration

	// Character metrics (only for chat operations)
	TotalPromptChars int64
	TotalReplyChars  int64
	MinPromptChars   int64
	MaxPromptChars   int64
	MinReplyChars    int64
	MaxReplyChars    int64
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64   `json:"count"`
	TotalTimeMs int64   `json:"total_time_ms"`
	AvgTimeMs   float64 `json:"avg_time_ms"`
	MinTimeMs   int64   `json:"min_time_ms"`
	MaxTimeMs   int64   `json:"max_time_ms"`

	// Character stats (nil if not applicable)
	TotalPromptChars *int64   `json:"total_prompt_chars,omitempty"`
	TotalReplyChars  *int64   `json:"total_reply_chars,omitempty"`
	AvgPromptChars   *float64 `json:"avg_prompt_chars,omitempty"`
	AvgReplyChars    *float64 `json:"avg_reply_chars,omitempty"`
	MinPromptChars   *int64   `json:"min_prompt_chars,omitempty"`
	MaxPromptChars   *int64   `json:"max_prompt_chars,omitempty"`
	MinReplyChars    *int64   `json:"min_reply_chars,omitempty"`
	MaxReplyChars    *int64   `json:"max_reply_chars,omitempty"`
}

// Snapshot represents the full server statistics at a point in time.
type Snapshot struct {
	UptimeSeconds  float64            `json:"uptime_seconds"`
	ChatSubmit     *OperationSnapshot `json:"chat_submit,omitempty"`
	ChatRegenerate *OperationSnapshot `json:"chat_regenerate,omitempty"`
	CollabMessage  *OperationSnapshot `json:"collab_message,omitempty"`
	ArchiveWrite   *OperationSnapshot `json:"archive_write,omitempty"`
}

// Operation names for the collector.
const (
	OpChatSubmit     = "chat_submit"
	OpChatRegenerate = "chat_regenerate"
	OpCollabMessage  = "collab_message"
	OpArchiveWrite   = "archive_write"
)

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{
			MinTime:        time.Duration(math.MaxInt64),
			MinPromptChars: math.MaxInt64,
			MinReplyChars:  math.MaxInt64,
		}
		c.ops[op] = m
	}
	return m
}

// RecordTiming records timing for an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// RecordChatUsage records timing and prompt/reply sizes for a chat turn.
func (c *Collector) RecordChatUsage(op string, duration time.Duration, promptChars, replyChars int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}

	prompt := int64(promptChars)
	reply := int64(replyChars)

	m.TotalPromptChars += prompt
	m.TotalReplyChars += reply

	if prompt < m.MinPromptChars {
		m.MinPromptChars = prompt
	}
	if prompt > m.MaxPromptChars {
		m.MaxPromptChars = prompt
	}
	if reply < m.MinReplyChars {
		m.MinReplyChars = reply
	}
	if reply > m.MaxReplyChars {
		m.MaxReplyChars = reply
	}
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *OperationMetrics, includeChars bool) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}

	snap := &OperationSnapshot{
		Count:       m.Count,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}

	if includeChars && (m.TotalPromptChars > 0 || m.TotalReplyChars > 0) {
		totalPrompt := m.TotalPromptChars
		totalReply := m.TotalReplyChars
		avgPrompt := float64(m.TotalPromptChars) / float64(m.Count)
		avgReply := float64(m.TotalReplyChars) / float64(m.Count)
		minPrompt := m.MinPromptChars
		maxPrompt := m.MaxPromptChars
		minReply := m.MinReplyChars
		maxReply := m.MaxReplyChars

		// Reset sentinel values for display
		if minPrompt == math.MaxInt64 {
			minPrompt = 0
		}
		if minReply == math.MaxInt64 {
			minReply = 0
		}

		snap.TotalPromptChars = &totalPrompt
		snap.TotalReplyChars = &totalReply
		snap.AvgPromptChars = &avgPrompt
		snap.AvgReplyChars = &avgReply
		snap.MinPromptChars = &minPrompt
		snap.MaxPromptChars = &maxPrompt
		snap.MinReplyChars = &minReply
		snap.MaxReplyChars = &maxReply
	}

	return snap
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds:  time.Since(c.startTime).Seconds(),
		ChatSubmit:     snapshotOp(c.ops[OpChatSubmit], true),
		ChatRegenerate: snapshotOp(c.ops[OpChatRegenerate], true),
		CollabMessage:  snapshotOp(c.ops[OpCollabMessage], false),
		ArchiveWrite:   snapshotOp(c.ops[OpArchiveWrite], false),
	}
}
