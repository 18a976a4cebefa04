package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/abdul34602/novaaipro1/internal/persona"
	"github.com/abdul34602/novaaipro1/internal/storage"
)

// CreateSessionRequest starts a new conversation bound to one persona.
type CreateSessionRequest struct {
	PersonaID string `json:"persona_id"`
	Title     string `json:"title,omitempty"`
}

// handleSessions lists sessions or creates a new one.
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		sessions, err := s.store.ListSessions(r.Context())
		if err != nil {
			s.writeError(w, "Failed to list sessions", http.StatusInternalServerError)
			return
		}
		if sessions == nil {
			sessions = []*storage.SessionSummary{}
		}
		s.writeJSON(w, sessions)

	case "POST":
		var req CreateSessionRequest
		if err := decodeBody(r, &req); err != nil {
			s.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		if req.PersonaID == "" {
			req.PersonaID = persona.DefaultID
		}
		p := s.personas.Get(r.Context(), req.PersonaID)

		title := req.Title
		if title == "" {
			title = "Briefing " + p.Name
		}

		now := time.Now()
		session := &storage.Session{
			ID:        uuid.New().String(),
			Title:     title,
			PersonaID: p.ID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.store.CreateSession(r.Context(), session); err != nil {
			s.writeError(w, "Failed to create session", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusCreated)
		s.writeJSON(w, session)
	}
}

// handleSession fetches or deletes one session.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	switch r.Method {
	case "GET":
		session, err := s.store.GetSession(r.Context(), id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				s.writeError(w, "Session not found", http.StatusNotFound)
				return
			}
			s.writeError(w, "Failed to get session", http.StatusInternalServerError)
			return
		}
		s.writeJSON(w, session)

	case "DELETE":
		if err := s.store.DeleteSession(r.Context(), id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				s.writeError(w, "Session not found", http.StatusNotFound)
				return
			}
			s.writeError(w, "Failed to delete session", http.StatusInternalServerError)
			return
		}
		s.writeJSON(w, map[string]bool{"deleted": true})
	}
}

// handleSessionMessages returns a session's transcript in turn order.
func (s *Server) handleSessionMessages(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	messages, err := s.store.GetMessages(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, "Session not found", http.StatusNotFound)
			return
		}
		s.writeError(w, "Failed to get messages", http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []storage.Message{}
	}
	s.writeJSON(w, messages)
}
