// Package api exposes the NovaAI HTTP surface: session CRUD, turn execution
// with SSE streaming, websocket session updates, personas, and the
// credential-gated admin endpoints.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/abdul34602/novaaipro1/internal/activity"
	"github.com/abdul34602/novaaipro1/internal/attach"
	"github.com/abdul34602/novaaipro1/internal/chat"
	"github.com/abdul34602/novaaipro1/internal/config"
	"github.com/abdul34602/novaaipro1/internal/events"
	"github.com/abdul34602/novaaipro1/internal/persona"
	"github.com/abdul34602/novaaipro1/internal/storage"
)

// Server represents the API server.
type Server struct {
	config     *config.Config
	settings   *config.SettingsStore
	store      storage.ChatStore
	runner     *chat.Runner
	personas   *persona.Registry
	ingestor   *attach.Ingestor
	activity   *activity.Log
	broker     *events.Broker[chat.SessionUpdate]
	upgrader   websocket.Upgrader
	httpServer *http.Server
}

// Deps bundles the collaborators the server needs.
type Deps struct {
	Config   *config.Config
	Settings *config.SettingsStore
	Store    storage.ChatStore
	Runner   *chat.Runner
	Personas *persona.Registry
	Ingestor *attach.Ingestor
	Activity *activity.Log
	Broker   *events.Broker[chat.SessionUpdate]
}

// NewServer creates a new API server.
func NewServer(deps Deps) *Server {
	return &Server{
		config:   deps.Config,
		settings: deps.Settings,
		store:    deps.Store,
		runner:   deps.Runner,
		personas: deps.Personas,
		ingestor: deps.Ingestor,
		activity: deps.Activity,
		broker:   deps.Broker,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return isLocalhostOrigin(r)
			},
		},
	}
}

// isLocalhostOrigin checks if the WebSocket origin is localhost.
func isLocalhostOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return strings.HasPrefix(origin, "http://localhost:") ||
		strings.HasPrefix(origin, "http://127.0.0.1:") ||
		strings.HasPrefix(origin, "http://[::1]:")
}

// Start starts the API server.
func (s *Server) Start(addr string) error {
	log.Printf("Starting API server on %s", addr)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Router returns the full handler chain. The CORS wrapper sits outside the
// mux router so browser preflights get answered even though no route
// registers the OPTIONS method.
func (s *Server) Router() http.Handler {
	return s.corsMiddleware(s.setupRoutes())
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() *mux.Router {
	router := mux.NewRouter()

	api := router.PathPrefix("/api/v1").Subrouter()

	// Sessions
	api.HandleFunc("/sessions", s.handleSessions).Methods("GET", "POST")
	api.HandleFunc("/sessions/{id}", s.handleSession).Methods("GET", "DELETE")
	api.HandleFunc("/sessions/{id}/messages", s.handleSessionMessages).Methods("GET")
	api.HandleFunc("/sessions/{id}/messages", s.handleSendMessage).Methods("POST")

	// WebSocket for live session updates
	api.HandleFunc("/sessions/{id}/ws", s.handleSessionWebSocket)

	// Personas
	api.HandleFunc("/personas", s.handlePersonas).Methods("GET", "POST")

	// Admin (credential-gated)
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(s.adminAuthMiddleware)
	admin.HandleFunc("/settings", s.handleAdminSettings).Methods("GET", "PUT")
	admin.HandleFunc("/logs", s.handleAdminLogs).Methods("GET")

	// Health check (public)
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	return router
}

// corsMiddleware adds CORS headers for the local front end.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allow := ""
		if origin == "" || strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:") {
			allow = origin
		}
		if allow == "" {
			allow = "http://localhost:3000"
		}
		w.Header().Set("Access-Control-Allow-Origin", allow)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Response helpers
func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func (s *Server) writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// Health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"services": map[string]bool{
			"store": s.store != nil,
			"api":   true,
		},
	}
	s.writeJSON(w, health)
}

// decodeBody decodes a JSON request body into dst.
func decodeBody(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
