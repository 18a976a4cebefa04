// Package chat orchestrates turns: it bridges the gateway's fragment stream
// into session state without data loss or duplicate finalization, and routes
// video-mode personas through the synthesis operation.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abdul34602/novaaipro1/internal/events"
	"github.com/abdul34602/novaaipro1/internal/gateway"
	"github.com/abdul34602/novaaipro1/internal/persona"
	"github.com/abdul34602/novaaipro1/internal/storage"
)

// ErrTurnInFlight rejects a submission while a prior turn's consumption is
// still in progress for the same session. Turns never interleave.
var ErrTurnInFlight = errors.New("chat: a turn is already in progress for this session")

// FailureNotice replaces the assistant content when a stream fails. The
// whole turn fails, never a partial prefix: a half-formed answer is worse
// than a clear failure notice.
const FailureNotice = "### System Alert\nCritical neural pipeline failure."

const (
	videoSuccessNotice = "### Synthesis Complete\nVisual data successfully rendered at **%s**."
	videoFailureNotice = "### Failed to Render\n%s"
	fallbackTitle      = "Brief Session"
	titleLimit         = 40
)

// ModelGateway is the capability surface the runner drives.
type ModelGateway interface {
	StreamCompletion(ctx context.Context, req gateway.CompletionRequest) (gateway.Stream, error)
	SynthesizeVideo(ctx context.Context, prompt, aspectRatio string) (string, error)
}

// SessionUpdate is the broker payload republished on every state change.
type SessionUpdate struct {
	SessionID string          `json:"session_id"`
	Message   storage.Message `json:"message"`
}

// TurnRequest carries one user submission.
type TurnRequest struct {
	SessionID   string
	Text        string
	AspectRatio string
	Attachments []storage.Attachment
}

// Runner executes turns against the store and the gateway. At most one turn
// per session is in flight at a time; independent sessions run concurrently.
type Runner struct {
	store    storage.ChatStore
	gateway  ModelGateway
	personas *persona.Registry
	broker   *events.Broker[SessionUpdate]

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewRunner creates a turn runner.
func NewRunner(store storage.ChatStore, gw ModelGateway, personas *persona.Registry, broker *events.Broker[SessionUpdate]) *Runner {
	return &Runner{
		store:    store,
		gateway:  gw,
		personas: personas,
		broker:   broker,
		inFlight: make(map[string]struct{}),
	}
}

// Run executes one turn to completion. observe, when non-nil, is invoked for
// every text fragment in emission order. The returned message is the
// finalized assistant message; on a transport failure it carries the fixed
// failure notice and the error is returned alongside.
func (r *Runner) Run(ctx context.Context, req TurnRequest, observe func(fragment string)) (*storage.Message, error) {
	session, err := r.store.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	if !r.acquire(req.SessionID) {
		return nil, ErrTurnInFlight
	}
	defer r.release(req.SessionID)

	p := r.personas.Get(ctx, session.PersonaID)

	// Prior turns, all finalized, before this submission is appended.
	history, err := r.store.GetMessages(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	userMsg := storage.Message{
		ID:          uuid.New().String(),
		SessionID:   req.SessionID,
		Role:        storage.RoleUser,
		Content:     req.Text,
		Attachments: req.Attachments,
		CreatedAt:   time.Now(),
	}
	if err := r.store.AppendMessage(ctx, &userMsg); err != nil {
		return nil, err
	}
	for i := range req.Attachments {
		req.Attachments[i].MessageID = userMsg.ID
		if err := r.store.SaveAttachment(ctx, &req.Attachments[i]); err != nil {
			return nil, err
		}
	}

	if len(history) == 0 {
		session.Title = deriveTitle(req.Text)
		session.UpdatedAt = time.Now()
		if err := r.store.UpdateSession(ctx, session); err != nil {
			return nil, err
		}
	}
	r.publish(req.SessionID, userMsg)

	// The placeholder is appended and persisted before consumption starts
	// so observers see the turn begin immediately.
	placeholder := storage.Message{
		ID:        uuid.New().String(),
		SessionID: req.SessionID,
		Role:      storage.RoleAssistant,
		Streaming: true,
		CreatedAt: time.Now(),
	}
	if err := r.store.AppendMessage(ctx, &placeholder); err != nil {
		return nil, err
	}
	r.publish(req.SessionID, placeholder)

	if p.Mode == persona.ModeVideo {
		return r.runVideoTurn(ctx, req, placeholder)
	}
	return r.runChatTurn(ctx, req, p, history, placeholder, observe)
}

// runChatTurn consumes the fragment stream into the placeholder.
func (r *Runner) runChatTurn(ctx context.Context, req TurnRequest, p persona.Persona, history []storage.Message, placeholder storage.Message, observe func(string)) (*storage.Message, error) {
	stream, err := r.gateway.StreamCompletion(ctx, gateway.CompletionRequest{
		History:           history,
		Text:              req.Text,
		Attachments:       req.Attachments,
		SystemInstruction: p.SystemInstruction,
		PersonaID:         p.ID,
	})
	if err != nil {
		return r.failTurn(ctx, placeholder, err)
	}

	var content strings.Builder
	for chunk := range stream {
		switch c := chunk.(type) {
		case gateway.TextChunk:
			content.WriteString(c.Text)
			placeholder.Content = content.String()
			if err := r.store.UpdateMessageContent(ctx, placeholder.ID, placeholder.Content); err != nil {
				return nil, err
			}
			r.publish(req.SessionID, placeholder)
			if observe != nil {
				observe(c.Text)
			}
		case gateway.ErrorChunk:
			return r.failTurn(ctx, placeholder, c.Err)
		}
	}

	placeholder.Content = content.String()
	placeholder.Streaming = false
	if err := r.store.FreezeMessage(ctx, placeholder.ID, placeholder.Content, ""); err != nil {
		return nil, err
	}
	r.publish(req.SessionID, placeholder)
	return &placeholder, nil
}

// runVideoTurn drives the synthesis operation to a terminal state.
func (r *Runner) runVideoTurn(ctx context.Context, req TurnRequest, placeholder storage.Message) (*storage.Message, error) {
	aspectRatio := req.AspectRatio
	if aspectRatio == "" {
		aspectRatio = "16:9"
	}

	videoURL, err := r.gateway.SynthesizeVideo(ctx, req.Text, aspectRatio)
	if err != nil {
		placeholder.Content = fmt.Sprintf(videoFailureNotice, err.Error())
		placeholder.Streaming = false
		if freezeErr := r.store.FreezeMessage(ctx, placeholder.ID, placeholder.Content, ""); freezeErr != nil {
			return nil, freezeErr
		}
		r.publish(req.SessionID, placeholder)
		return &placeholder, err
	}

	placeholder.Content = fmt.Sprintf(videoSuccessNotice, aspectRatio)
	placeholder.VideoURL = videoURL
	placeholder.Streaming = false
	if err := r.store.FreezeMessage(ctx, placeholder.ID, placeholder.Content, videoURL); err != nil {
		return nil, err
	}
	r.publish(req.SessionID, placeholder)
	return &placeholder, nil
}

// failTurn finalizes a failed streaming turn. Any fragments applied before
// the failure are discarded along with the rest of the turn.
func (r *Runner) failTurn(ctx context.Context, placeholder storage.Message, cause error) (*storage.Message, error) {
	placeholder.Content = FailureNotice
	placeholder.Streaming = false
	if err := r.store.FreezeMessage(ctx, placeholder.ID, FailureNotice, ""); err != nil {
		return nil, err
	}
	r.publish(placeholder.SessionID, placeholder)
	return &placeholder, cause
}

// InFlight reports whether a turn is currently running for the session.
func (r *Runner) InFlight(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.inFlight[sessionID]
	return ok
}

func (r *Runner) acquire(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inFlight[sessionID]; ok {
		return false
	}
	r.inFlight[sessionID] = struct{}{}
	return true
}

func (r *Runner) release(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, sessionID)
}

func (r *Runner) publish(sessionID string, message storage.Message) {
	if r.broker != nil {
		r.broker.Publish(events.SessionUpdated, SessionUpdate{SessionID: sessionID, Message: message})
	}
}

// deriveTitle derives a session title from the first user message.
func deriveTitle(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return fallbackTitle
	}
	runes := []rune(trimmed)
	if len(runes) > titleLimit {
		return string(runes[:titleLimit])
	}
	return trimmed
}
