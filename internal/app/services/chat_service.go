package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sistempim/pimserver/internal/app/models"
	"github.com/sistempim/pimserver/internal/pkg/apperrors"
	"github.com/sistempim/pimserver/internal/pkg/docstore"
)

// MessageStream is a live, cancellable view of a session's messages.
// Each snapshot is the full ascending message list. The channel closes
// after Cancel; Cancel is safe to call more than once.
type MessageStream struct {
	snapshots <-chan []models.ChatMessage
	sub       *docstore.Subscription
}

// Snapshots returns the channel of message list snapshots.
func (s *MessageStream) Snapshots() <-chan []models.ChatMessage {
	return s.snapshots
}

// Cancel releases the underlying store subscription.
func (s *MessageStream) Cancel() {
	s.sub.Cancel()
}

// ChatService manages two-party chat sessions. A session's identity is a
// pure function of its participant pair, so both sides always converge on
// the same conversation without any lookup.
type ChatService interface {
	// SessionID derives the canonical session id for a pair of uids. It is
	// symmetric and injective over unordered pairs.
	SessionID(uidA, uidB string) string

	// OpenSession ensures the session document for the pair exists and
	// returns its id. Re-opening an existing session never resets it.
	OpenSession(ctx context.Context, actorUID, otherUID string) (string, error)

	// SendMessage appends a message. Blank or whitespace-only text is
	// dropped without error; the returned flag reports whether a message
	// was actually written. The timestamp is assigned by the store.
	SendMessage(ctx context.Context, sessionID, senderUID, text string) (bool, error)

	// ListMessages returns the session's messages oldest-first.
	ListMessages(ctx context.Context, sessionID, readerUID string) ([]models.ChatMessage, error)

	// StreamMessages opens a live snapshot stream of the session's
	// messages, oldest-first. The caller must Cancel the stream.
	StreamMessages(ctx context.Context, sessionID, readerUID string) (*MessageStream, error)
}

type chatServiceImpl struct {
	store  docstore.Gateway
	logger zerolog.Logger
}

// NewChatService creates a new ChatService
func NewChatService(store docstore.Gateway, logger zerolog.Logger) ChatService {
	return &chatServiceImpl{store: store, logger: logger}
}

func (s *chatServiceImpl) SessionID(uidA, uidB string) string {
	if uidA < uidB {
		return uidA + "_" + uidB
	}
	return uidB + "_" + uidA
}

func (s *chatServiceImpl) OpenSession(ctx context.Context, actorUID, otherUID string) (string, error) {
	if actorUID == "" || otherUID == "" || actorUID == otherUID {
		return "", apperrors.NewCustomError(apperrors.ErrInvalidArgument, "a chat session needs two distinct participants")
	}

	sessionID := s.SessionID(actorUID, otherUID)
	_, err := s.store.Get(ctx, models.CollectionChats, sessionID)
	if err == nil {
		return sessionID, nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return "", err
	}

	// First contact for this pair: the creation timestamp is assigned by
	// the store, and re-opening later never touches it again.
	err = s.store.Merge(ctx, models.CollectionChats, sessionID, map[string]interface{}{
		"criacao":       docstore.ServerTimestamp,
		"participantes": docstore.ArrayUnion(actorUID, otherUID),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("session", sessionID).Msg("Failed to open chat session")
		return "", err
	}
	return sessionID, nil
}

func (s *chatServiceImpl) SendMessage(ctx context.Context, sessionID, senderUID, text string) (bool, error) {
	if err := requireParticipant(sessionID, senderUID); err != nil {
		return false, err
	}
	if strings.TrimSpace(text) == "" {
		return false, nil
	}

	_, err := s.store.Add(ctx, models.ChatMessagesCollection(sessionID), map[string]interface{}{
		"texto":     text,
		"senderId":  senderUID,
		"timestamp": docstore.ServerTimestamp,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("session", sessionID).Str("sender", senderUID).Msg("Failed to send message")
		return false, err
	}
	return true, nil
}

func (s *chatServiceImpl) ListMessages(ctx context.Context, sessionID, readerUID string) ([]models.ChatMessage, error) {
	if err := requireParticipant(sessionID, readerUID); err != nil {
		return nil, err
	}

	docs, err := s.store.Query(ctx, models.ChatMessagesCollection(sessionID), nil, &docstore.Order{Field: "timestamp"}, 0)
	if err != nil {
		s.logger.Error().Err(err).Str("session", sessionID).Msg("Failed to list messages")
		return nil, err
	}
	return messagesFromDocuments(docs), nil
}

func (s *chatServiceImpl) StreamMessages(ctx context.Context, sessionID, readerUID string) (*MessageStream, error) {
	if err := requireParticipant(sessionID, readerUID); err != nil {
		return nil, err
	}

	sub, err := s.store.Subscribe(ctx, models.ChatMessagesCollection(sessionID), nil, &docstore.Order{Field: "timestamp"})
	if err != nil {
		s.logger.Error().Err(err).Str("session", sessionID).Msg("Failed to subscribe to messages")
		return nil, err
	}

	snapshots := make(chan []models.ChatMessage, 1)
	go func() {
		defer close(snapshots)
		for docs := range sub.Snapshots() {
			snapshots <- messagesFromDocuments(docs)
		}
	}()
	return &MessageStream{snapshots: snapshots, sub: sub}, nil
}

// requireParticipant checks membership against the uids encoded in the
// session id itself. Uids never contain underscores, so splitting on the
// separator recovers the exact pair.
func requireParticipant(sessionID, uid string) error {
	if uid == "" {
		return apperrors.ErrNotParticipant
	}
	a, b, found := strings.Cut(sessionID, "_")
	if !found || a == "" || b == "" {
		return apperrors.NewCustomError(apperrors.ErrInvalidArgument, "malformed chat session id")
	}
	if uid != a && uid != b {
		return apperrors.ErrNotParticipant
	}
	return nil
}

func messagesFromDocuments(docs []docstore.Document) []models.ChatMessage {
	messages := make([]models.ChatMessage, 0, len(docs))
	for _, doc := range docs {
		messages = append(messages, models.MessageFromDocument(doc))
	}
	return messages
}
