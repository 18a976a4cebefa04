package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		Title:     "New Chat",
		PersonaID: "default",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestMemoryStoreSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.CreateSession(ctx, newSession("s1")))

	session, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "New Chat", session.Title)

	session.Title = "Renamed"
	session.UpdatedAt = time.Now()
	require.NoError(t, store.UpdateSession(ctx, session))

	session, err = store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", session.Title)

	require.NoError(t, store.DeleteSession(ctx, "s1"))
	_, err = store.GetSession(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.DeleteSession(ctx, "s1"), ErrNotFound)
}

func TestMemoryStoreGetSessionReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.CreateSession(ctx, newSession("s1")))

	first, _ := store.GetSession(ctx, "s1")
	first.Title = "mutated by caller"

	second, _ := store.GetSession(ctx, "s1")
	assert.Equal(t, "New Chat", second.Title)
}

func TestMemoryStoreListSessionsOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	older := newSession("older")
	older.UpdatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, store.CreateSession(ctx, older))
	require.NoError(t, store.CreateSession(ctx, newSession("newer")))

	summaries, err := store.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "newer", summaries[0].ID)
	assert.Equal(t, "older", summaries[1].ID)
}

func TestMemoryStoreListSessionsLastMessage(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.CreateSession(ctx, newSession("s1")))

	require.NoError(t, store.AppendMessage(ctx, &Message{ID: "m1", SessionID: "s1", Role: RoleUser, Content: "question", CreatedAt: time.Now()}))
	require.NoError(t, store.AppendMessage(ctx, &Message{ID: "m2", SessionID: "s1", Role: RoleAssistant, Content: "answer", CreatedAt: time.Now()}))

	summaries, err := store.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 2, summaries[0].MessageCount)
	// Preview reflects the latest user message, not the assistant reply.
	assert.Equal(t, "question", summaries[0].LastMessage)
}

func TestMemoryStoreMessagesChronological(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.CreateSession(ctx, newSession("s1")))

	for _, id := range []string{"m1", "m2", "m3"} {
		require.NoError(t, store.AppendMessage(ctx, &Message{ID: id, SessionID: "s1", Role: RoleUser, CreatedAt: time.Now()}))
	}

	messages, err := store.GetMessages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "m1", messages[0].ID)
	assert.Equal(t, "m3", messages[2].ID)

	_, err = store.GetMessages(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreAppendToUnknownSession(t *testing.T) {
	store := NewMemoryStore()
	err := store.AppendMessage(context.Background(), &Message{ID: "m1", SessionID: "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreStreamingMutability(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.CreateSession(ctx, newSession("s1")))
	require.NoError(t, store.AppendMessage(ctx, &Message{ID: "m1", SessionID: "s1", Role: RoleAssistant, Streaming: true, CreatedAt: time.Now()}))

	require.NoError(t, store.UpdateMessageContent(ctx, "m1", "partial"))
	require.NoError(t, store.UpdateMessageContent(ctx, "m1", "partial more"))

	require.NoError(t, store.FreezeMessage(ctx, "m1", "final", ""))

	messages, _ := store.GetMessages(ctx, "s1")
	assert.Equal(t, "final", messages[0].Content)
	assert.False(t, messages[0].Streaming)

	// Frozen messages are immutable through the streaming path.
	assert.ErrorIs(t, store.UpdateMessageContent(ctx, "m1", "late write"), ErrNotFound)
	messages, _ = store.GetMessages(ctx, "s1")
	assert.Equal(t, "final", messages[0].Content)
}

func TestMemoryStoreFreezeWithVideoURL(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.CreateSession(ctx, newSession("s1")))
	require.NoError(t, store.AppendMessage(ctx, &Message{ID: "m1", SessionID: "s1", Role: RoleAssistant, Streaming: true, CreatedAt: time.Now()}))

	require.NoError(t, store.FreezeMessage(ctx, "m1", "notice", "https://provider/a&key=k"))

	messages, _ := store.GetMessages(ctx, "s1")
	assert.Equal(t, "https://provider/a&key=k", messages[0].VideoURL)
}

func TestMemoryStoreAttachments(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.CreateSession(ctx, newSession("s1")))
	require.NoError(t, store.AppendMessage(ctx, &Message{ID: "m1", SessionID: "s1", Role: RoleUser, CreatedAt: time.Now()}))

	require.NoError(t, store.SaveAttachment(ctx, &Attachment{ID: "a1", MessageID: "m1", Name: "notes.txt", MimeType: "text/plain", SizeBytes: 5, Payload: "data:text/plain;base64,aGVsbG8="}))

	attachments, err := store.GetMessageAttachments(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, attachments, 1)
	assert.Equal(t, "notes.txt", attachments[0].Name)

	// Deleting the session drops the attachments with it.
	require.NoError(t, store.DeleteSession(ctx, "s1"))
	attachments, err = store.GetMessageAttachments(ctx, "m1")
	require.NoError(t, err)
	assert.Empty(t, attachments)
}

func TestMemoryStorePersonaCreateOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	rec := &PersonaRecord{ID: "custom-1", Name: "Tutor", Mode: "chat", CreatedAt: time.Now()}
	require.NoError(t, store.CreatePersona(ctx, rec))
	assert.ErrorIs(t, store.CreatePersona(ctx, rec), ErrPersonaExists)

	got, err := store.GetPersona(ctx, "custom-1")
	require.NoError(t, err)
	assert.Equal(t, "Tutor", got.Name)

	_, err = store.GetPersona(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStorePersonaCreationOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for _, id := range []string{"custom-b", "custom-a", "custom-c"} {
		require.NoError(t, store.CreatePersona(ctx, &PersonaRecord{ID: id, CreatedAt: time.Now()}))
	}

	personas, err := store.ListPersonas(ctx)
	require.NoError(t, err)
	require.Len(t, personas, 3)
	assert.Equal(t, "custom-b", personas[0].ID)
	assert.Equal(t, "custom-a", personas[1].ID)
	assert.Equal(t, "custom-c", personas[2].ID)
}
