package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/abdul34602/novaaipro1/internal/persona"
	"github.com/abdul34602/novaaipro1/internal/storage"
)

// CreatePersonaRequest authors a new persona. Created once, immutable after.
type CreatePersonaRequest struct {
	Name              string `json:"name"`
	Role              string `json:"role"`
	Description       string `json:"description"`
	SystemInstruction string `json:"system_instruction"`
	Mode              string `json:"mode,omitempty"`
}

// handlePersonas lists all personas or creates a user-authored one.
func (s *Server) handlePersonas(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		personas, err := s.personas.List(r.Context())
		if err != nil {
			s.writeError(w, "Failed to list personas", http.StatusInternalServerError)
			return
		}
		s.writeJSON(w, personas)

	case "POST":
		var req CreatePersonaRequest
		if err := decodeBody(r, &req); err != nil {
			s.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			s.writeError(w, "Persona name is required", http.StatusBadRequest)
			return
		}

		mode := persona.Mode(req.Mode)
		if mode != persona.ModeVideo {
			mode = persona.ModeChat
		}

		p := persona.Persona{
			ID:                "custom-" + uuid.New().String(),
			Name:              req.Name,
			Role:              req.Role,
			Description:       req.Description,
			SystemInstruction: req.SystemInstruction,
			Category:          "Custom",
			Mode:              mode,
			Custom:            true,
		}
		if err := s.personas.Create(r.Context(), p); err != nil {
			if errors.Is(err, storage.ErrPersonaExists) || errors.Is(err, persona.ErrReservedID) {
				s.writeError(w, "Persona already exists", http.StatusConflict)
				return
			}
			s.writeError(w, "Failed to create persona", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusCreated)
		s.writeJSON(w, p)
	}
}
