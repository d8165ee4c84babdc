// Package server exposes the chat manager and collaboration store over a
// JSON HTTP API plus a WebSocket feed for live session messages.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/okidwi/chathub/internal/chat"
	"github.com/okidwi/chathub/internal/collab"
	"github.com/okidwi/chathub/internal/llm"
	"github.com/okidwi/chathub/internal/metrics"
)

// ModelLister lists the models installed on the backend.
type ModelLister interface {
	Models(ctx context.Context) ([]llm.ModelInfo, error)
}

// Options carries the server's dependencies.
type Options struct {
	Chat    *chat.Manager
	Store   *collab.Store
	Catalog ModelLister
	Metrics *metrics.Collector
	Logger  *slog.Logger
}

// Server routes HTTP requests to the chat and collaboration cores.
type Server struct {
	chat    *chat.Manager
	store   *collab.Store
	catalog ModelLister
	metrics *metrics.Collector
	logger  *slog.Logger
	hub     *hub
	clock   func() time.Time
}

// New creates a server and wires the store's message hook to the live feed.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		chat:    opts.Chat,
		store:   opts.Store,
		catalog: opts.Catalog,
		metrics: opts.Metrics,
		logger:  logger,
		hub:     newHub(logger),
		clock:   time.Now,
	}
	s.store.OnMessage = s.hub.Broadcast
	return s
}

// Handler returns the full route table wrapped in logging middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/chat/submit", s.handleChatSubmit)
	mux.HandleFunc("POST /api/chat/regenerate", s.handleChatRegenerate)
	mux.HandleFunc("GET /api/chat/transcript", s.handleChatTranscript)
	mux.HandleFunc("POST /api/chat/clear", s.handleChatClear)
	mux.HandleFunc("GET /api/chat/history", s.handleChatHistory)
	mux.HandleFunc("GET /api/chat/history/export", s.handleChatExport)
	mux.HandleFunc("POST /api/chat/history/clear", s.handleChatHistoryClear)

	mux.HandleFunc("POST /api/collab/sessions", s.handleSessionCreate)
	mux.HandleFunc("GET /api/collab/sessions/{id}", s.handleSessionGet)
	mux.HandleFunc("POST /api/collab/sessions/{id}/join", s.handleSessionJoin)
	mux.HandleFunc("POST /api/collab/sessions/{id}/leave", s.handleSessionLeave)
	mux.HandleFunc("POST /api/collab/sessions/{id}/activate", s.handleSessionActivate)
	mux.HandleFunc("GET /api/collab/active", s.handleActiveSession)
	mux.HandleFunc("POST /api/collab/messages", s.handleMessageSend)
	mux.HandleFunc("GET /api/collab/messages", s.handleMessageList)
	mux.HandleFunc("POST /api/collab/whiteboard", s.handleWhiteboardUpdate)
	mux.HandleFunc("GET /api/collab/whiteboard", s.handleWhiteboardGet)
	mux.HandleFunc("POST /api/collab/tasks", s.handleTaskAdd)
	mux.HandleFunc("GET /api/collab/tasks", s.handleTaskList)
	mux.HandleFunc("POST /api/collab/tasks/{id}/complete", s.handleTaskComplete)
	mux.HandleFunc("POST /api/collab/tasks/{id}/assign", s.handleTaskAssign)
	mux.HandleFunc("POST /api/collab/tasks/{id}/remove", s.handleTaskRemove)
	mux.HandleFunc("GET /api/collab/users", s.handleActiveUsers)
	mux.HandleFunc("GET /api/collab/invite", s.handleInviteLink)
	mux.HandleFunc("GET /api/collab/export", s.handleSessionExport)

	mux.HandleFunc("GET /api/models", s.handleModels)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /ws/collab/{id}", s.handleFeed)

	return loggingMiddleware(s.logger, mux)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// --- chat handlers ---

func (s *Server) handleChatSubmit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	reply, err := s.chat.Submit(r.Context(), req.Message)
	if err != nil {
		s.writeBackendError(w, err)
		return
	}
	if reply == nil {
		// Blank input is a silent no-op.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleChatRegenerate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int `json:"index"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	reply, err := s.chat.Regenerate(r.Context(), req.Index)
	if err != nil {
		if errors.Is(err, chat.ErrNoSuchMessage) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) writeBackendError(w http.ResponseWriter, err error) {
	var backendErr *llm.BackendError
	switch {
	case errors.Is(err, llm.ErrBackendUnavailable):
		writeError(w, http.StatusServiceUnavailable, "chat backend unavailable")
	case errors.As(err, &backendErr):
		writeError(w, http.StatusBadGateway, backendErr.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleChatTranscript(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.chat.Transcript())
}

func (s *Server) handleChatClear(w http.ResponseWriter, r *http.Request) {
	s.chat.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.chat.History())
}

func (s *Server) handleChatHistoryClear(w http.ResponseWriter, r *http.Request) {
	s.chat.ClearHistory()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChatExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = chat.FormatCSV
	}

	data, err := s.chat.Export(format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	contentType := "text/csv"
	if format == chat.FormatJSON {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+chat.ExportFilename(format, s.clock())+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// --- collaboration handlers ---

// sessionID pulls the session from the query, empty meaning the active one.
func sessionID(r *http.Request) string {
	return r.URL.Query().Get("session_id")
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Type     string `json:"type"`
		MaxUsers int    `json:"max_users"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	session := s.store.CreateSession(req.Name, req.Type, req.MaxUsers)
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	session, ok := s.store.Session(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleSessionJoin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	participant, ok := s.store.JoinSession(r.PathValue("id"), req.Name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	writeJSON(w, http.StatusOK, participant)
}

func (s *Server) handleSessionLeave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ParticipantID string `json:"participant_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if !s.store.LeaveSession(r.PathValue("id"), req.ParticipantID) {
		writeError(w, http.StatusNotFound, "unknown session or participant")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionActivate(w http.ResponseWriter, r *http.Request) {
	if !s.store.SetActive(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleActiveSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.store.ActiveSessionID()
	if !ok {
		writeError(w, http.StatusNotFound, "no active session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"session_id": id})
}

func (s *Server) handleMessageSend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		User      string `json:"user"`
		Text      string `json:"text"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	start := time.Now()
	msg, ok := s.store.SendMessage(req.SessionID, req.User, req.Text)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	if s.metrics != nil {
		s.metrics.RecordTiming(metrics.OpCollabMessage, time.Since(start))
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleMessageList(w http.ResponseWriter, r *http.Request) {
	messages, ok := s.store.Messages(sessionID(r))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (s *Server) handleWhiteboardUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Content   string `json:"content"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if !s.store.UpdateWhiteboard(req.SessionID, req.Content) {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWhiteboardGet(w http.ResponseWriter, r *http.Request) {
	content, ok := s.store.Whiteboard(sessionID(r))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"content": content})
}

func (s *Server) handleTaskAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID   string `json:"session_id"`
		Description string `json:"description"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	task, ok := s.store.AddTask(req.SessionID, req.Description)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleTaskList(w http.ResponseWriter, r *http.Request) {
	tasks, ok := s.store.Tasks(sessionID(r))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleTaskComplete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if !s.store.CompleteTask(req.SessionID, r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "unknown session or task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTaskAssign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Assignee  string `json:"assignee"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if !s.store.AssignTask(req.SessionID, r.PathValue("id"), req.Assignee) {
		writeError(w, http.StatusNotFound, "unknown session or task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTaskRemove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if !s.store.RemoveTask(req.SessionID, r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "unknown session or task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleActiveUsers(w http.ResponseWriter, r *http.Request) {
	users, ok := s.store.ActiveUsers(sessionID(r))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	if users == nil {
		users = []collab.Participant{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleInviteLink(w http.ResponseWriter, r *http.Request) {
	link, ok := s.store.InviteLink(sessionID(r))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"link": link})
}

func (s *Server) handleSessionExport(w http.ResponseWriter, r *http.Request) {
	session, ok := s.store.ExportData(sessionID(r))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="session_`+session.ID+`.json"`)
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(session)
}

// --- service handlers ---

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		writeError(w, http.StatusNotImplemented, "model listing not available for this provider")
		return
	}

	models, err := s.catalog.Models(r.Context())
	if err != nil {
		s.writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		writeError(w, http.StatusNotImplemented, "metrics not enabled")
		return
	}
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.store.Session(id); !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	s.hub.serve(w, r, id)
}
