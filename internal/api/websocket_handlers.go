package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/abdul34602/novaaipro1/internal/chat"
	"github.com/abdul34602/novaaipro1/internal/events"
)

// WebSocketMessage is the frame sent to session observers.
type WebSocketMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// handleSessionWebSocket streams live session updates to one client. The
// client observes every republished state change for its session: appended
// messages, growing fragment content, finalizations.
func (s *Server) handleSessionWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("WebSocket client connected for session: %s", sessionID)

	sub := s.broker.Subscribe(r.Context())

	pingTicker := time.NewTicker(54 * time.Second)
	defer pingTicker.Stop()

	// Reader goroutine: drain client frames and surface disconnects.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			log.Printf("WebSocket client disconnected for session: %s", sessionID)
			return

		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case event, ok := <-sub:
			if !ok {
				return
			}
			if event.Payload.SessionID != sessionID {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(wsFrame(event)); err != nil {
				log.Printf("WebSocket write error: %v", err)
				return
			}
		}
	}
}

func wsFrame(event events.Event[chat.SessionUpdate]) WebSocketMessage {
	return WebSocketMessage{
		Type: string(event.Type),
		Data: event.Payload,
	}
}
