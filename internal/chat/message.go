// Package chat implements the conversation core: an in-memory transcript,
// a durable history log of completed turns, and export of that log.
package chat

// Role tags who authored a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in the visible transcript.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
