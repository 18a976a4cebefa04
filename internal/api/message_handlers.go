package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/abdul34602/novaaipro1/internal/attach"
	"github.com/abdul34602/novaaipro1/internal/chat"
	"github.com/abdul34602/novaaipro1/internal/storage"
)

// AttachmentUpload is one file in a send-message request, base64-encoded.
type AttachmentUpload struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

// SendMessageRequest submits one turn.
type SendMessageRequest struct {
	Message     string             `json:"message"`
	AspectRatio string             `json:"aspect_ratio,omitempty"`
	Attachments []AttachmentUpload `json:"attachments,omitempty"`
}

// SSEEvent represents a Server-Sent Event.
type SSEEvent struct {
	Event string      `json:"event,omitempty"`
	Data  interface{} `json:"data"`
}

// handleSendMessage runs one turn, streaming fragments to the client as
// Server-Sent Events. A turn already in flight for the session is rejected
// with 409; oversized attachments are rejected individually up front while
// the valid ones proceed.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req SendMessageRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Message == "" && len(req.Attachments) == 0 {
		s.writeError(w, "Message or attachments required", http.StatusBadRequest)
		return
	}

	files := make([]attach.File, 0, len(req.Attachments))
	for _, upload := range req.Attachments {
		data, err := base64.StdEncoding.DecodeString(upload.Data)
		if err != nil {
			s.writeError(w, fmt.Sprintf("Attachment %q is not valid base64", upload.Name), http.StatusBadRequest)
			return
		}
		files = append(files, attach.File{Name: upload.Name, MimeType: upload.MimeType, Data: data})
	}
	attachments, rejected := s.ingestor.IngestAll(files)

	// Cheap pre-check so the common conflict case gets a real 409 before
	// the response is committed to the event stream. The runner still
	// guards authoritatively against races.
	if s.runner.InFlight(sessionID) {
		s.writeError(w, "A turn is already in progress for this session", http.StatusConflict)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for _, rejErr := range rejected {
		var tooLarge *attach.TooLargeError
		if errors.As(rejErr, &tooLarge) {
			s.writeSSE(w, flusher, SSEEvent{Event: "attachment_rejected", Data: map[string]interface{}{
				"name":  tooLarge.Name,
				"size":  tooLarge.Size,
				"limit": tooLarge.Limit,
			}})
		}
	}

	final, err := s.runner.Run(r.Context(), chat.TurnRequest{
		SessionID:   sessionID,
		Text:        req.Message,
		AspectRatio: req.AspectRatio,
		Attachments: attachments,
	}, func(fragment string) {
		s.writeSSE(w, flusher, SSEEvent{Event: "fragment", Data: map[string]string{"text": fragment}})
	})

	if err != nil {
		switch {
		case errors.Is(err, chat.ErrTurnInFlight):
			// Headers already sent; signal the conflict in-band.
			s.writeSSE(w, flusher, SSEEvent{Event: "error", Data: map[string]interface{}{
				"error":  "A turn is already in progress for this session",
				"status": http.StatusConflict,
			}})
			return
		case errors.Is(err, storage.ErrNotFound):
			s.writeSSE(w, flusher, SSEEvent{Event: "error", Data: map[string]interface{}{
				"error":  "Session not found",
				"status": http.StatusNotFound,
			}})
			return
		}
		log.Printf("Turn failed for session %s: %v", sessionID, err)
		// The runner already finalized the failure notice; fall through so
		// the client receives the terminal message.
	}

	if final != nil {
		s.writeSSE(w, flusher, SSEEvent{Event: "done", Data: final})
	}
}

// writeSSE writes one Server-Sent Event and flushes it.
func (s *Server) writeSSE(w http.ResponseWriter, flusher http.Flusher, event SSEEvent) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		log.Printf("Failed to marshal SSE event: %v", err)
		return
	}
	if event.Event != "" {
		fmt.Fprintf(w, "event: %s\n", event.Event)
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}
