package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a session, message, or persona does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrPersonaExists is returned on an attempt to re-create a persona id.
	// Personas are create-once; they are never updated in place.
	ErrPersonaExists = errors.New("storage: persona already exists")
)

// ChatStore defines persistence operations for sessions, messages,
// attachments, and user-authored personas.
type ChatStore interface {
	// Sessions
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	ListSessions(ctx context.Context) ([]*SessionSummary, error)
	UpdateSession(ctx context.Context, session *Session) error
	DeleteSession(ctx context.Context, id string) error

	// Messages
	AppendMessage(ctx context.Context, message *Message) error
	UpdateMessageContent(ctx context.Context, messageID, content string) error
	FreezeMessage(ctx context.Context, messageID, content, videoURL string) error
	GetMessages(ctx context.Context, sessionID string) ([]Message, error)

	// Attachments
	SaveAttachment(ctx context.Context, attachment *Attachment) error
	GetMessageAttachments(ctx context.Context, messageID string) ([]Attachment, error)

	// Personas (user-authored only; built-ins live in the persona package)
	CreatePersona(ctx context.Context, persona *PersonaRecord) error
	GetPersona(ctx context.Context, id string) (*PersonaRecord, error)
	ListPersonas(ctx context.Context) ([]*PersonaRecord, error)

	Close() error
}
