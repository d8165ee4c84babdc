package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okidwi/chathub/internal/collab"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local dev
	},
}

// feedEvent is one message pushed to live feed subscribers.
type feedEvent struct {
	SessionID string         `json:"session_id"`
	Message   collab.Message `json:"message"`
}

// hub fans session feed messages out to WebSocket subscribers.
type hub struct {
	mu     sync.Mutex
	subs   map[string]map[*websocket.Conn]chan feedEvent
	logger *slog.Logger
}

func newHub(logger *slog.Logger) *hub {
	return &hub{
		subs:   make(map[string]map[*websocket.Conn]chan feedEvent),
		logger: logger,
	}
}

// Broadcast delivers a message to every subscriber of the session. Slow
// subscribers are skipped rather than blocking the sender.
func (h *hub) Broadcast(sessionID string, msg collab.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs[sessionID] {
		select {
		case ch <- feedEvent{SessionID: sessionID, Message: msg}:
		default:
			h.logger.Warn("dropping feed event for slow subscriber", "session", sessionID)
		}
	}
}

func (h *hub) subscribe(sessionID string, conn *websocket.Conn) chan feedEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan feedEvent, 32)
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[*websocket.Conn]chan feedEvent)
	}
	h.subs[sessionID][conn] = ch
	return ch
}

func (h *hub) unsubscribe(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subs[sessionID][conn]; ok {
		close(ch)
		delete(h.subs[sessionID], conn)
	}
	if len(h.subs[sessionID]) == 0 {
		delete(h.subs, sessionID)
	}
}

// serve upgrades the request and streams feed events until the client
// disconnects.
func (h *hub) serve(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events := h.subscribe(sessionID, conn)
	defer h.unsubscribe(sessionID, conn)

	// Reader goroutine: we never expect client messages, but reading is
	// required to notice disconnects and answer pings.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
