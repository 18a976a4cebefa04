package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/tursodatabase/go-libsql"
)

// SQLiteStore implements ChatStore using SQLite/libsql.
type SQLiteStore struct {
	db *sql.DB
}

// NewDefaultSQLiteStore creates a store under the user's data directory.
func NewDefaultSQLiteStore() (*SQLiteStore, error) {
	dbPath, err := DefaultPathManager.ChatDatabasePath()
	if err != nil {
		return nil, fmt.Errorf("failed to get default chat database path: %w", err)
	}
	return NewSQLiteStore(dbPath)
}

// NewSQLiteStore opens (or creates) the chat database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("libsql", "file:"+dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}

	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	log.Printf("Chat store initialized: %s", dbPath)
	return store, nil
}

// CreateSession creates a new chat session.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *Session) error {
	query := `INSERT INTO sessions (id, title, persona_id, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		session.ID, session.Title, session.PersonaID, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetSession retrieves a session by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*Session, error) {
	query := `SELECT id, title, persona_id, created_at, updated_at
	          FROM sessions WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, id)

	var session Session
	err := row.Scan(&session.ID, &session.Title, &session.PersonaID,
		&session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &session, nil
}

// ListSessions returns summaries of all sessions, most recently updated first.
func (s *SQLiteStore) ListSessions(ctx context.Context) ([]*SessionSummary, error) {
	query := `
		SELECT s.id, s.title, s.persona_id, s.updated_at,
		       (SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id),
		       COALESCE((SELECT content FROM messages m
		                 WHERE m.session_id = s.id AND m.role = 'user'
		                 ORDER BY m.created_at DESC LIMIT 1), '')
		FROM sessions s
		ORDER BY s.updated_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*SessionSummary
	for rows.Next() {
		var summary SessionSummary
		err := rows.Scan(&summary.ID, &summary.Title, &summary.PersonaID,
			&summary.UpdatedAt, &summary.MessageCount, &summary.LastMessage)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, &summary)
	}

	return sessions, rows.Err()
}

// UpdateSession updates an existing session's title and timestamps.
func (s *SQLiteStore) UpdateSession(ctx context.Context, session *Session) error {
	query := `UPDATE sessions SET title = ?, updated_at = ? WHERE id = ?`

	_, err := s.db.ExecContext(ctx, query, session.Title, session.UpdatedAt, session.ID)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	return nil
}

// DeleteSession deletes a session; messages and attachments cascade.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	query := `DELETE FROM sessions WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// AppendMessage appends a message to its session's transcript.
func (s *SQLiteStore) AppendMessage(ctx context.Context, message *Message) error {
	query := `INSERT INTO messages (id, session_id, role, content, video_url, streaming, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		message.ID, message.SessionID, string(message.Role), message.Content,
		message.VideoURL, message.Streaming, message.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	return nil
}

// UpdateMessageContent replaces the content of a still-streaming message.
func (s *SQLiteStore) UpdateMessageContent(ctx context.Context, messageID, content string) error {
	query := `UPDATE messages SET content = ? WHERE id = ? AND streaming = 1`

	result, err := s.db.ExecContext(ctx, query, content, messageID)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// FreezeMessage finalizes a message: sets its content (and optional video
// URL) and clears the streaming flag. Frozen messages are never written again.
func (s *SQLiteStore) FreezeMessage(ctx context.Context, messageID, content, videoURL string) error {
	query := `UPDATE messages SET content = ?, video_url = ?, streaming = 0 WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, content, videoURL, messageID)
	if err != nil {
		return fmt.Errorf("failed to freeze message: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to freeze message: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetMessages retrieves a session's messages in chronological order.
func (s *SQLiteStore) GetMessages(ctx context.Context, sessionID string) ([]Message, error) {
	query := `SELECT id, session_id, role, content, video_url, streaming, created_at
	          FROM messages WHERE session_id = ?
	          ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var message Message
		var role string
		err := rows.Scan(&message.ID, &message.SessionID, &role,
			&message.Content, &message.VideoURL, &message.Streaming, &message.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		message.Role = Role(role)
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	attachments, err := s.sessionAttachments(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(attachments) > 0 {
		for i := range messages {
			messages[i].Attachments = attachments[messages[i].ID]
		}
	}

	return messages, nil
}

// sessionAttachments loads all attachments for a session's transcript in one
// query, keyed by message id.
func (s *SQLiteStore) sessionAttachments(ctx context.Context, sessionID string) (map[string][]Attachment, error) {
	query := `SELECT a.id, a.message_id, a.name, a.mime_type, a.size_bytes, a.payload, a.created_at
	          FROM attachments a
	          JOIN messages m ON m.id = a.message_id
	          WHERE m.session_id = ?
	          ORDER BY a.created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attachments: %w", err)
	}
	defer rows.Close()

	attachments := make(map[string][]Attachment)
	for rows.Next() {
		var attachment Attachment
		err := rows.Scan(&attachment.ID, &attachment.MessageID, &attachment.Name,
			&attachment.MimeType, &attachment.SizeBytes, &attachment.Payload, &attachment.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		attachments[attachment.MessageID] = append(attachments[attachment.MessageID], attachment)
	}

	return attachments, rows.Err()
}

// SaveAttachment saves a transport-encoded file attachment.
func (s *SQLiteStore) SaveAttachment(ctx context.Context, attachment *Attachment) error {
	query := `INSERT INTO attachments (id, message_id, name, mime_type, size_bytes, payload, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		attachment.ID, attachment.MessageID, attachment.Name,
		attachment.MimeType, attachment.SizeBytes, attachment.Payload, attachment.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save attachment: %w", err)
	}

	return nil
}

// GetMessageAttachments retrieves attachments for a message.
func (s *SQLiteStore) GetMessageAttachments(ctx context.Context, messageID string) ([]Attachment, error) {
	query := `SELECT id, message_id, name, mime_type, size_bytes, payload, created_at
	          FROM attachments WHERE message_id = ?
	          ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attachments: %w", err)
	}
	defer rows.Close()

	var attachments []Attachment
	for rows.Next() {
		var attachment Attachment
		err := rows.Scan(&attachment.ID, &attachment.MessageID, &attachment.Name,
			&attachment.MimeType, &attachment.SizeBytes, &attachment.Payload, &attachment.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		attachments = append(attachments, attachment)
	}

	return attachments, rows.Err()
}

// CreatePersona stores a user-authored persona. Create-once: an existing id
// is an error, never an overwrite.
func (s *SQLiteStore) CreatePersona(ctx context.Context, persona *PersonaRecord) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM personas WHERE id = ?`, persona.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check persona: %w", err)
	}
	if exists > 0 {
		return ErrPersonaExists
	}

	query := `INSERT INTO personas (id, name, role, description, system_instruction, mode, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		persona.ID, persona.Name, persona.RoleLabel, persona.Description,
		persona.SystemInstruction, persona.Mode, persona.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create persona: %w", err)
	}

	return nil
}

// GetPersona retrieves a user-authored persona by ID.
func (s *SQLiteStore) GetPersona(ctx context.Context, id string) (*PersonaRecord, error) {
	query := `SELECT id, name, role, description, system_instruction, mode, created_at
	          FROM personas WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, id)

	var persona PersonaRecord
	err := row.Scan(&persona.ID, &persona.Name, &persona.RoleLabel, &persona.Description,
		&persona.SystemInstruction, &persona.Mode, &persona.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get persona: %w", err)
	}

	return &persona, nil
}

// ListPersonas returns all user-authored personas in creation order.
func (s *SQLiteStore) ListPersonas(ctx context.Context) ([]*PersonaRecord, error) {
	query := `SELECT id, name, role, description, system_instruction, mode, created_at
	          FROM personas ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list personas: %w", err)
	}
	defer rows.Close()

	var personas []*PersonaRecord
	for rows.Next() {
		var persona PersonaRecord
		err := rows.Scan(&persona.ID, &persona.Name, &persona.RoleLabel, &persona.Description,
			&persona.SystemInstruction, &persona.Mode, &persona.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan persona: %w", err)
		}
		personas = append(personas, &persona)
	}

	return personas, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// The go-libsql driver executes only the first statement of a multi-statement
// Exec, so the schema is held as one statement per element.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL DEFAULT 'New Chat',
    persona_id TEXT NOT NULL DEFAULT 'default',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(id)
)`,

	`CREATE TABLE IF NOT EXISTS messages (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
    content TEXT NOT NULL,
    video_url TEXT NOT NULL DEFAULT '',
    streaming INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE,
    UNIQUE(id)
)`,

	`CREATE TABLE IF NOT EXISTS attachments (
    id TEXT PRIMARY KEY,
    message_id TEXT NOT NULL,
    name TEXT NOT NULL,
    mime_type TEXT,
    size_bytes INTEGER NOT NULL DEFAULT 0,
    payload TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (message_id) REFERENCES messages(id) ON DELETE CASCADE,
    UNIQUE(id)
)`,

	`CREATE TABLE IF NOT EXISTS personas (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    system_instruction TEXT NOT NULL DEFAULT '',
    mode TEXT NOT NULL DEFAULT 'chat' CHECK (mode IN ('chat', 'video')),
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(id)
)`,

	`CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_session_id ON messages(session_id)`,
	`CREATE INDEX IF NOT EXISTS idx_attachments_message_id ON attachments(message_id)`,

	`CREATE TRIGGER IF NOT EXISTS update_session_modified
    AFTER INSERT ON messages
    FOR EACH ROW
BEGIN
    UPDATE sessions SET updated_at = CURRENT_TIMESTAMP WHERE id = NEW.session_id;
END`,
}
