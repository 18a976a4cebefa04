package storage

import (
	"time"
)

// Role identifies who produced a message. The set is closed: every message
// belongs to either the user or the assistant.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Session represents a titled conversation bound to one persona.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	PersonaID string    `json:"persona_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message represents one entry in a session's transcript. Content is mutable
// only while Streaming is true; FreezeMessage flips it off permanently.
type Message struct {
	ID          string       `json:"id"`
	SessionID   string       `json:"session_id"`
	Role        Role         `json:"role"`
	Content     string       `json:"content"`
	VideoURL    string       `json:"video_url,omitempty"`
	Streaming   bool         `json:"streaming,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Attachment is a transport-encoded file bound to one user message.
// Payload carries a data: URI with a base64 body, produced by the ingestor.
type Attachment struct {
	ID        string    `json:"id"`
	MessageID string    `json:"message_id,omitempty"`
	Name      string    `json:"name"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	Payload   string    `json:"payload,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PersonaRecord is a user-authored persona as persisted by the store.
// Built-in personas never pass through here.
type PersonaRecord struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	RoleLabel         string    `json:"role"`
	Description       string    `json:"description"`
	SystemInstruction string    `json:"system_instruction"`
	Mode              string    `json:"mode"`
	CreatedAt         time.Time `json:"created_at"`
}

// SessionSummary provides a lightweight view of session data for listings.
type SessionSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	PersonaID    string    `json:"persona_id"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	LastMessage  string    `json:"last_message,omitempty"`
}
