package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore implements ChatStore entirely in memory. It backs tests and the
// --memory server mode. All access is serialized by a single mutex: session
// mutation happens from handler goroutines and streaming turns concurrently,
// so the store cannot rely on a single-threaded caller.
type MemoryStore struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	messages    map[string][]Message       // session id -> ordered transcript
	attachments map[string][]Attachment    // message id -> attachments
	personas    map[string]*PersonaRecord
	order       []string // persona ids in creation order
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:    make(map[string]*Session),
		messages:    make(map[string][]Message),
		attachments: make(map[string][]Attachment),
		personas:    make(map[string]*PersonaRecord),
	}
}

// CreateSession creates a new chat session.
func (m *MemoryStore) CreateSession(ctx context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *session
	m.sessions[session.ID] = &copied
	m.messages[session.ID] = []Message{}
	return nil
}

// GetSession retrieves a session by ID.
func (m *MemoryStore) GetSession(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *session
	return &copied, nil
}

// ListSessions returns summaries of all sessions, most recently updated first.
func (m *MemoryStore) ListSessions(ctx context.Context) ([]*SessionSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summaries := make([]*SessionSummary, 0, len(m.sessions))
	for id, session := range m.sessions {
		summary := &SessionSummary{
			ID:           session.ID,
			Title:        session.Title,
			PersonaID:    session.PersonaID,
			UpdatedAt:    session.UpdatedAt,
			MessageCount: len(m.messages[id]),
		}
		for i := len(m.messages[id]) - 1; i >= 0; i-- {
			if m.messages[id][i].Role == RoleUser {
				summary.LastMessage = m.messages[id][i].Content
				break
			}
		}
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

// UpdateSession updates an existing session's title and timestamps.
func (m *MemoryStore) UpdateSession(ctx context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.sessions[session.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Title = session.Title
	existing.UpdatedAt = session.UpdatedAt
	return nil
}

// DeleteSession removes a session and its whole transcript.
func (m *MemoryStore) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	for _, msg := range m.messages[id] {
		delete(m.attachments, msg.ID)
	}
	delete(m.sessions, id)
	delete(m.messages, id)
	return nil
}

// AppendMessage appends a message to its session's transcript.
func (m *MemoryStore) AppendMessage(ctx context.Context, message *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[message.SessionID]
	if !ok {
		return ErrNotFound
	}
	m.messages[message.SessionID] = append(m.messages[message.SessionID], *message)
	session.UpdatedAt = message.CreatedAt
	return nil
}

// UpdateMessageContent replaces the content of a still-streaming message.
func (m *MemoryStore) UpdateMessageContent(ctx context.Context, messageID, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg := m.findMessage(messageID)
	if msg == nil || !msg.Streaming {
		return ErrNotFound
	}
	msg.Content = content
	return nil
}

// FreezeMessage finalizes a message and clears its streaming flag.
func (m *MemoryStore) FreezeMessage(ctx context.Context, messageID, content, videoURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg := m.findMessage(messageID)
	if msg == nil {
		return ErrNotFound
	}
	msg.Content = content
	msg.VideoURL = videoURL
	msg.Streaming = false
	return nil
}

// findMessage returns a pointer into the stored transcript. Caller holds mu.
func (m *MemoryStore) findMessage(messageID string) *Message {
	for sessionID := range m.messages {
		transcript := m.messages[sessionID]
		for i := range transcript {
			if transcript[i].ID == messageID {
				return &transcript[i]
			}
		}
	}
	return nil
}

// GetMessages retrieves a session's messages in chronological order.
func (m *MemoryStore) GetMessages(ctx context.Context, sessionID string) ([]Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	transcript, ok := m.messages[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]Message, len(transcript))
	copy(out, transcript)
	return out, nil
}

// SaveAttachment saves a transport-encoded file attachment.
func (m *MemoryStore) SaveAttachment(ctx context.Context, attachment *Attachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.attachments[attachment.MessageID] = append(m.attachments[attachment.MessageID], *attachment)
	return nil
}

// GetMessageAttachments retrieves attachments for a message.
func (m *MemoryStore) GetMessageAttachments(ctx context.Context, messageID string) ([]Attachment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Attachment, len(m.attachments[messageID]))
	copy(out, m.attachments[messageID])
	return out, nil
}

// CreatePersona stores a user-authored persona, create-once.
func (m *MemoryStore) CreatePersona(ctx context.Context, persona *PersonaRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.personas[persona.ID]; ok {
		return ErrPersonaExists
	}
	copied := *persona
	m.personas[persona.ID] = &copied
	m.order = append(m.order, persona.ID)
	return nil
}

// GetPersona retrieves a user-authored persona by ID.
func (m *MemoryStore) GetPersona(ctx context.Context, id string) (*PersonaRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	persona, ok := m.personas[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *persona
	return &copied, nil
}

// ListPersonas returns all user-authored personas in creation order.
func (m *MemoryStore) ListPersonas(ctx context.Context) ([]*PersonaRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	personas := make([]*PersonaRecord, 0, len(m.order))
	for _, id := range m.order {
		copied := *m.personas[id]
		personas = append(personas, &copied)
	}
	return personas, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}
