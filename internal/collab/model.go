// Package collab implements multi-user session state: participants, a
// shared message feed, a whiteboard, and a task list per session.
package collab

// Session is one collaboration room and everything in it.
type Session struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Type         string        `json:"type"`
	MaxUsers     int           `json:"max_users"`
	CreatedAt    string        `json:"created_at"`
	Participants []Participant `json:"participants"`
	Messages     []Message     `json:"messages"`
	Whiteboard   string        `json:"whiteboard"`
	Tasks        []Task        `json:"tasks"`
}

// Full reports whether the session has reached its advisory participant
// limit. Joins are not refused on capacity; callers may warn.
func (s *Session) Full() bool {
	return s.MaxUsers > 0 && len(s.Participants) >= s.MaxUsers
}

// Participant is one user who joined a session.
type Participant struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	JoinedAt string `json:"joined_at"`
	Active   bool   `json:"active"`
}

// Message is one entry in a session's shared feed.
type Message struct {
	ID        string `json:"id"`
	User      string `json:"user"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	Kind      string `json:"kind"`
}

// Task is one item on a session's task list.
type Task struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	CreatedAt   string  `json:"created_at"`
	Completed   bool    `json:"completed"`
	Assignee    *string `json:"assignee,omitempty"`
}
