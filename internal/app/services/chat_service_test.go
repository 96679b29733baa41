package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sistempim/pimserver/internal/app/models"
	"github.com/sistempim/pimserver/internal/pkg/apperrors"
	"github.com/sistempim/pimserver/internal/pkg/docstore"
	"github.com/sistempim/pimserver/internal/pkg/docstore/memstore"
)

func TestSessionIDSymmetric(t *testing.T) {
	svc := NewChatService(memstore.New(), zerolog.Nop())

	tests := []struct {
		a, b, want string
	}{
		{"alice", "bob", "alice_bob"},
		{"bob", "alice", "alice_bob"},
		{"u2", "u10", "u10_u2"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, svc.SessionID(tt.a, tt.b))
		assert.Equal(t, svc.SessionID(tt.a, tt.b), svc.SessionID(tt.b, tt.a))
	}
}

func TestSessionIDInjective(t *testing.T) {
	svc := NewChatService(memstore.New(), zerolog.Nop())
	assert.NotEqual(t, svc.SessionID("a", "b"), svc.SessionID("a", "c"))
	assert.NotEqual(t, svc.SessionID("a", "b"), svc.SessionID("b", "c"))
}

func TestOpenSessionKeepsCreationTime(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	store := memstore.NewWithClock(func() time.Time { return now })
	svc := NewChatService(store, zerolog.Nop())

	id, err := svc.OpenSession(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice_bob", id)

	// Re-opening later must not reset the creation stamp.
	now = now.Add(48 * time.Hour)
	_, err = svc.OpenSession(ctx, "alice", "bob")
	require.NoError(t, err)

	doc, err := store.Get(ctx, models.CollectionChats, id)
	require.NoError(t, err)
	created, ok := docstore.AsTime(doc.Fields["criacao"])
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC), created.UTC())
}

func TestSendMessageOrdering(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	store := memstore.NewWithClock(func() time.Time { return now })
	svc := NewChatService(store, zerolog.Nop())

	id, err := svc.OpenSession(ctx, "alice", "bob")
	require.NoError(t, err)

	for _, text := range []string{"oi", "tudo bem?", "até logo"} {
		sent, err := svc.SendMessage(ctx, id, "alice", text)
		require.NoError(t, err)
		require.True(t, sent)
		now = now.Add(time.Minute)
	}

	messages, err := svc.ListMessages(ctx, id, "bob")
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "oi", messages[0].Text)
	assert.Equal(t, "até logo", messages[2].Text)
	assert.True(t, messages[0].Timestamp.Before(messages[1].Timestamp))
	assert.True(t, messages[1].Timestamp.Before(messages[2].Timestamp))
}

func TestSendBlankMessageIsSilentNoOp(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewChatService(store, zerolog.Nop())

	id, err := svc.OpenSession(ctx, "alice", "bob")
	require.NoError(t, err)

	for _, text := range []string{"", "   ", "\n\t"} {
		sent, err := svc.SendMessage(ctx, id, "alice", text)
		require.NoError(t, err)
		assert.False(t, sent)
	}

	messages, err := svc.ListMessages(ctx, id, "alice")
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestChatRejectsNonParticipants(t *testing.T) {
	ctx := context.Background()
	svc := NewChatService(memstore.New(), zerolog.Nop())

	id, err := svc.OpenSession(ctx, "alice", "bob")
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, id, "mallory", "hi")
	assert.ErrorIs(t, err, apperrors.ErrNotParticipant)

	_, err = svc.ListMessages(ctx, id, "mallory")
	assert.ErrorIs(t, err, apperrors.ErrNotParticipant)
}

func TestOpenSessionRejectsDegeneratePairs(t *testing.T) {
	svc := NewChatService(memstore.New(), zerolog.Nop())

	_, err := svc.OpenSession(context.Background(), "alice", "alice")
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	_, err = svc.OpenSession(context.Background(), "alice", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func TestStreamMessagesDeliversSnapshots(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	store := memstore.NewWithClock(func() time.Time { return now })
	svc := NewChatService(store, zerolog.Nop())

	id, err := svc.OpenSession(ctx, "alice", "bob")
	require.NoError(t, err)

	stream, err := svc.StreamMessages(ctx, id, "alice")
	require.NoError(t, err)
	defer stream.Cancel()

	initial := <-stream.Snapshots()
	assert.Empty(t, initial)

	sent, err := svc.SendMessage(ctx, id, "bob", "oi")
	require.NoError(t, err)
	require.True(t, sent)

	select {
	case snapshot := <-stream.Snapshots():
		require.Len(t, snapshot, 1)
		assert.Equal(t, "oi", snapshot[0].Text)
		assert.Equal(t, "bob", snapshot[0].SenderUID)
	case <-time.After(time.Second):
		t.Fatal("no snapshot after send")
	}
}
