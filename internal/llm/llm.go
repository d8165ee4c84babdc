// Package llm wraps the chat completion backend behind a small interface so
// the chat core can be tested without a running model server.
package llm

import "context"

// Role tags a message in a completion request.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged message in a completion request.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Options carries per-request sampling options.
type Options struct {
	// Temperature in [0,1].
	Temperature float64
}

// Completer produces one assistant reply for an ordered message context.
// Implementations must return errors from this package's taxonomy:
// ErrBackendUnavailable when the server cannot be reached, *BackendError
// when the server answered but the request failed.
type Completer interface {
	Complete(ctx context.Context, model string, messages []Message, opts Options) (string, error)
}
