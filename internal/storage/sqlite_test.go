package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

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

func TestSQLiteStoreMessagesCarryAttachments(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	require.NoError(t, store.CreateSession(ctx, newSession("s1")))
	require.NoError(t, store.AppendMessage(ctx, &Message{
		ID: "m1", SessionID: "s1", Role: RoleUser, Content: "see attached", CreatedAt: time.Now(),
	}))
	require.NoError(t, store.SaveAttachment(ctx, &Attachment{
		ID: "a1", MessageID: "m1", Name: "notes.txt", MimeType: "text/plain",
		SizeBytes: 5, Payload: "data:text/plain;base64,aGVsbG8=", CreatedAt: time.Now(),
	}))
	require.NoError(t, store.AppendMessage(ctx, &Message{
		ID: "m2", SessionID: "s1", Role: RoleAssistant, Content: "looks good", CreatedAt: time.Now(),
	}))

	// The transcript read carries attachments inline, message by message.
	messages, err := store.GetMessages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Len(t, messages[0].Attachments, 1)
	assert.Equal(t, "notes.txt", messages[0].Attachments[0].Name)
	assert.Equal(t, "data:text/plain;base64,aGVsbG8=", messages[0].Attachments[0].Payload)
	assert.Empty(t, messages[1].Attachments)

	attachments, err := store.GetMessageAttachments(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, attachments, 1)
	assert.Equal(t, int64(5), attachments[0].SizeBytes)
}

func TestSQLiteStoreStreamingMutability(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	require.NoError(t, store.CreateSession(ctx, newSession("s1")))
	require.NoError(t, store.AppendMessage(ctx, &Message{
		ID: "m1", SessionID: "s1", Role: RoleAssistant, Streaming: true, CreatedAt: time.Now(),
	}))

	require.NoError(t, store.UpdateMessageContent(ctx, "m1", "partial"))
	require.NoError(t, store.FreezeMessage(ctx, "m1", "final", ""))

	messages, err := store.GetMessages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "final", messages[0].Content)
	assert.False(t, messages[0].Streaming)

	// Frozen messages are immutable through the streaming path.
	assert.ErrorIs(t, store.UpdateMessageContent(ctx, "m1", "late write"), ErrNotFound)

	// Both write paths agree on missing ids.
	assert.ErrorIs(t, store.FreezeMessage(ctx, "ghost", "x", ""), ErrNotFound)
	assert.ErrorIs(t, store.UpdateMessageContent(ctx, "ghost", "x"), ErrNotFound)
}

func TestSQLiteStorePersonaCreateOnce(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	rec := &PersonaRecord{ID: "custom-1", Name: "Tutor", Mode: "chat", CreatedAt: time.Now()}
	require.NoError(t, store.CreatePersona(ctx, rec))
	assert.ErrorIs(t, store.CreatePersona(ctx, rec), ErrPersonaExists)

	got, err := store.GetPersona(ctx, "custom-1")
	require.NoError(t, err)
	assert.Equal(t, "Tutor", got.Name)
}
