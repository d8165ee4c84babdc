package collab

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const timestampLayout = "2006-01-02 15:04:05"

// Store holds all collaboration sessions plus the pointer to the active one.
// Lookup and mutation methods report success with a boolean; they never
// panic on unknown ids. All methods are safe for concurrent use.
//
// The empty session id routes to the active session wherever a sessionID
// parameter is accepted.
type Store struct {
	mu sync.Mutex

	sessions map[string]*Session
	active   string
	baseURL  string
	newID    func() string
	clock    func() time.Time

	// OnMessage, when set, is called after each appended message with the
	// session id. Used to fan out to live feed subscribers. Called without
	// the store lock held.
	OnMessage func(sessionID string, msg Message)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithBaseURL sets the base for invite links.
func WithBaseURL(base string) StoreOption {
	return func(s *Store) { s.baseURL = strings.TrimRight(base, "/") }
}

// WithIDGenerator overrides id generation.
func WithIDGenerator(gen func() string) StoreOption {
	return func(s *Store) { s.newID = gen }
}

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) StoreOption {
	return func(s *Store) { s.clock = clock }
}

// NewStore creates an empty session store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		sessions: make(map[string]*Session),
		baseURL:  "http://localhost:8585",
		newID:    shortID,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// shortID is the default id generator: the first 8 hex characters of a v4
// UUID, matching the invite-link friendly ids users see.
func shortID() string {
	return uuid.New().String()[:8]
}

// uniqueID draws ids until one passes the taken check.
func (s *Store) uniqueID(taken func(string) bool) string {
	for {
		id := s.newID()
		if !taken(id) {
			return id
		}
	}
}

// CreateSession creates a session and makes it the active one.
func (s *Store) CreateSession(name, sessionType string, maxUsers int) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.uniqueID(func(id string) bool {
		_, exists := s.sessions[id]
		return exists
	})

	session := &Session{
		ID:        id,
		Name:      name,
		Type:      sessionType,
		MaxUsers:  maxUsers,
		CreatedAt: s.clock().Format(timestampLayout),
	}
	s.sessions[id] = session
	s.active = id

	return copySession(session)
}

// SetActive switches the active session pointer.
func (s *Store) SetActive(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return false
	}
	s.active = sessionID
	return true
}

// ActiveSessionID returns the active session id, or false when none is set.
func (s *Store) ActiveSessionID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == "" {
		return "", false
	}
	return s.active, true
}

// Session returns a copy of the session, or false when unknown. An empty id
// routes to the active session.
func (s *Store) Session(sessionID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.resolve(sessionID)
	if !ok {
		return nil, false
	}
	return copySession(session), true
}

// JoinSession adds a participant. A blank name gets a positional default
// like "User_3". Capacity is advisory: joins past MaxUsers still succeed.
func (s *Store) JoinSession(sessionID, userName string) (*Participant, bool) {
	s.mu.Lock()
	session, ok := s.resolve(sessionID)
	if !ok {
		s.mu.Unlock()
		return nil, false
	}

	name := strings.TrimSpace(userName)
	if name == "" {
		name = fmt.Sprintf("User_%d", len(session.Participants)+1)
	}

	participant := Participant{
		ID:       s.uniqueParticipantID(session),
		Name:     name,
		JoinedAt: s.clock().Format(timestampLayout),
		Active:   true,
	}
	session.Participants = append(session.Participants, participant)
	// Joining makes the session the active one.
	s.active = session.ID
	s.mu.Unlock()

	s.announce(session.ID, name+" joined the session")
	return &participant, true
}

// LeaveSession marks a participant inactive.
func (s *Store) LeaveSession(sessionID, participantID string) bool {
	s.mu.Lock()
	session, ok := s.resolve(sessionID)
	if !ok {
		s.mu.Unlock()
		return false
	}

	name := ""
	for i := range session.Participants {
		if session.Participants[i].ID == participantID {
			session.Participants[i].Active = false
			name = session.Participants[i].Name
			break
		}
	}
	s.mu.Unlock()

	if name == "" {
		return false
	}
	s.announce(sessionID, name+" left the session")
	return true
}

// SendMessage appends a message to the session feed. A blank user name is
// recorded as "Anonymous".
func (s *Store) SendMessage(sessionID, user, text string) (*Message, bool) {
	return s.appendMessage(sessionID, user, text, "message")
}

// announce appends a system message to the feed.
func (s *Store) announce(sessionID, text string) {
	s.appendMessage(sessionID, "system", text, "system")
}

func (s *Store) appendMessage(sessionID, user, text, kind string) (*Message, bool) {
	s.mu.Lock()
	session, ok := s.resolve(sessionID)
	if !ok {
		s.mu.Unlock()
		return nil, false
	}

	name := strings.TrimSpace(user)
	if name == "" {
		name = "Anonymous"
	}

	msg := Message{
		ID:        s.uniqueMessageID(session),
		User:      name,
		Text:      text,
		Timestamp: s.clock().Format(timestampLayout),
		Kind:      kind,
	}
	session.Messages = append(session.Messages, msg)
	id := session.ID
	hook := s.OnMessage
	s.mu.Unlock()

	if hook != nil {
		hook(id, msg)
	}
	return &msg, true
}

// Messages returns a copy of the session feed.
func (s *Store) Messages(sessionID string) ([]Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.resolve(sessionID)
	if !ok {
		return nil, false
	}
	out := make([]Message, len(session.Messages))
	copy(out, session.Messages)
	return out, true
}

// ActiveUsers returns the participants still marked active.
func (s *Store) ActiveUsers(sessionID string) ([]Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.resolve(sessionID)
	if !ok {
		return nil, false
	}
	var out []Participant
	for _, p := range session.Participants {
		if p.Active {
			out = append(out, p)
		}
	}
	return out, true
}

// UpdateWhiteboard replaces the shared whiteboard content.
func (s *Store) UpdateWhiteboard(sessionID, content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.resolve(sessionID)
	if !ok {
		return false
	}
	session.Whiteboard = content
	return true
}

// Whiteboard returns the current whiteboard content.
func (s *Store) Whiteboard(sessionID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.resolve(sessionID)
	if !ok {
		return "", false
	}
	return session.Whiteboard, true
}

// AddTask appends a task to the session list.
func (s *Store) AddTask(sessionID, description string) (*Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.resolve(sessionID)
	if !ok {
		return nil, false
	}

	task := Task{
		ID:          s.uniqueTaskID(session),
		Description: description,
		CreatedAt:   s.clock().Format(timestampLayout),
	}
	session.Tasks = append(session.Tasks, task)
	return &task, true
}

// CompleteTask marks a task done. Unknown task or session returns false.
func (s *Store) CompleteTask(sessionID, taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.resolve(sessionID)
	if !ok {
		return false
	}
	for i := range session.Tasks {
		if session.Tasks[i].ID == taskID {
			session.Tasks[i].Completed = true
			return true
		}
	}
	return false
}

// AssignTask sets a task's assignee. Unknown task or session returns false.
func (s *Store) AssignTask(sessionID, taskID, assignee string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.resolve(sessionID)
	if !ok {
		return false
	}
	for i := range session.Tasks {
		if session.Tasks[i].ID == taskID {
			session.Tasks[i].Assignee = &assignee
			return true
		}
	}
	return false
}

// RemoveTask deletes a task from the session list.
func (s *Store) RemoveTask(sessionID, taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.resolve(sessionID)
	if !ok {
		return false
	}
	for i := range session.Tasks {
		if session.Tasks[i].ID == taskID {
			session.Tasks = append(session.Tasks[:i], session.Tasks[i+1:]...)
			return true
		}
	}
	return false
}

// Tasks returns a copy of the session task list.
func (s *Store) Tasks(sessionID string) ([]Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.resolve(sessionID)
	if !ok {
		return nil, false
	}
	out := make([]Task, len(session.Tasks))
	copy(out, session.Tasks)
	return out, true
}

// InviteLink returns the shareable join URL for a session.
func (s *Store) InviteLink(sessionID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.resolve(sessionID)
	if !ok {
		return "", false
	}
	return s.baseURL + "/collab/" + session.ID, true
}

// ExportData returns a full copy of the session for download. Like every
// other store operation it reports false when no session resolves.
func (s *Store) ExportData(sessionID string) (*Session, bool) {
	return s.Session(sessionID)
}

// resolve maps an id to a session, routing the empty id to the active
// session. Caller holds the lock.
func (s *Store) resolve(sessionID string) (*Session, bool) {
	if sessionID == "" {
		if s.active == "" {
			return nil, false
		}
		sessionID = s.active
	}
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *Store) uniqueParticipantID(session *Session) string {
	return s.uniqueID(func(id string) bool {
		for _, p := range session.Participants {
			if p.ID == id {
				return true
			}
		}
		return false
	})
}

func (s *Store) uniqueMessageID(session *Session) string {
	return s.uniqueID(func(id string) bool {
		for _, m := range session.Messages {
			if m.ID == id {
				return true
			}
		}
		return false
	})
}

func (s *Store) uniqueTaskID(session *Session) string {
	return s.uniqueID(func(id string) bool {
		for _, t := range session.Tasks {
			if t.ID == id {
				return true
			}
		}
		return false
	})
}

func copySession(session *Session) *Session {
	out := *session
	out.Participants = append([]Participant(nil), session.Participants...)
	out.Messages = append([]Message(nil), session.Messages...)
	out.Tasks = append([]Task(nil), session.Tasks...)
	return &out
}
