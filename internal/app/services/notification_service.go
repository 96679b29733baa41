package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/sistempim/pimserver/internal/app/models"
	"github.com/sistempim/pimserver/internal/pkg/apperrors"
	"github.com/sistempim/pimserver/internal/pkg/docstore"
)

// NotificationStream is a live, cancellable view of a user's inbox,
// newest-first. The channel closes after Cancel.
type NotificationStream struct {
	snapshots <-chan []models.Notification
	sub       *docstore.Subscription
}

// Snapshots returns the channel of inbox snapshots.
func (s *NotificationStream) Snapshots() <-chan []models.Notification {
	return s.snapshots
}

// Cancel releases the underlying store subscription.
func (s *NotificationStream) Cancel() {
	s.sub.Cancel()
}

// NotificationService owns the per-user notification inbox and its read
// state. Notifications are immutable after creation except for the read
// flag.
type NotificationService interface {
	// Notify creates a notification for the recipient and returns its id.
	Notify(ctx context.Context, recipientUID, title, body string, kind models.NotificationKind) (string, error)

	// List returns the recipient's inbox, newest-first.
	List(ctx context.Context, recipientUID string) ([]models.Notification, error)

	// Stream opens a live inbox stream, newest-first. The caller must
	// Cancel the stream.
	Stream(ctx context.Context, recipientUID string) (*NotificationStream, error)

	// MarkRead flips one notification to read. Marking an already-read
	// notification is a no-op; the flag reports whether state changed.
	MarkRead(ctx context.Context, actorUID, notificationID string) (bool, error)

	// MarkAllRead marks every notification unread at call time. Entries
	// arriving while it runs stay unread for the next call. Returns the
	// number of notifications marked.
	MarkAllRead(ctx context.Context, recipientUID string) (int, error)

	// UnreadCount returns the number of unread notifications.
	UnreadCount(ctx context.Context, recipientUID string) (int, error)
}

type notificationServiceImpl struct {
	store  docstore.Gateway
	logger zerolog.Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(store docstore.Gateway, logger zerolog.Logger) NotificationService {
	return &notificationServiceImpl{store: store, logger: logger}
}

func (s *notificationServiceImpl) Notify(ctx context.Context, recipientUID, title, body string, kind models.NotificationKind) (string, error) {
	if recipientUID == "" || title == "" {
		return "", apperrors.NewCustomError(apperrors.ErrInvalidArgument, "notification needs a recipient and a title")
	}
	if kind == "" {
		kind = models.NotificationSystem
	}

	id, err := s.store.Add(ctx, models.CollectionNotifications, map[string]interface{}{
		"uidDestinatario": recipientUID,
		"titulo":          title,
		"mensagem":        body,
		"tipo":            string(kind),
		"lida":            false,
		"data":            docstore.ServerTimestamp,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("recipient", recipientUID).Msg("Failed to create notification")
		return "", err
	}
	return id, nil
}

func (s *notificationServiceImpl) List(ctx context.Context, recipientUID string) ([]models.Notification, error) {
	docs, err := s.store.Query(ctx, models.CollectionNotifications,
		[]docstore.Where{{Field: "uidDestinatario", Op: docstore.OpEqual, Value: recipientUID}},
		&docstore.Order{Field: "data", Desc: true}, 0)
	if err != nil {
		s.logger.Error().Err(err).Str("recipient", recipientUID).Msg("Failed to list notifications")
		return nil, err
	}
	return notificationsFromDocuments(docs), nil
}

func (s *notificationServiceImpl) Stream(ctx context.Context, recipientUID string) (*NotificationStream, error) {
	sub, err := s.store.Subscribe(ctx, models.CollectionNotifications,
		[]docstore.Where{{Field: "uidDestinatario", Op: docstore.OpEqual, Value: recipientUID}},
		&docstore.Order{Field: "data", Desc: true})
	if err != nil {
		s.logger.Error().Err(err).Str("recipient", recipientUID).Msg("Failed to subscribe to notifications")
		return nil, err
	}

	snapshots := make(chan []models.Notification, 1)
	go func() {
		defer close(snapshots)
		for docs := range sub.Snapshots() {
			snapshots <- notificationsFromDocuments(docs)
		}
	}()
	return &NotificationStream{snapshots: snapshots, sub: sub}, nil
}

func (s *notificationServiceImpl) MarkRead(ctx context.Context, actorUID, notificationID string) (bool, error) {
	doc, err := s.store.Get(ctx, models.CollectionNotifications, notificationID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return false, apperrors.ErrNotificationNotFound
		}
		return false, err
	}

	notification := models.NotificationFromDocument(doc)
	if notification.RecipientUID != actorUID {
		return false, apperrors.NewForbiddenError("notification belongs to another user")
	}
	if notification.Read {
		return false, nil
	}

	if err := s.store.Merge(ctx, models.CollectionNotifications, notificationID, map[string]interface{}{"lida": true}); err != nil {
		s.logger.Error().Err(err).Str("notification", notificationID).Msg("Failed to mark notification read")
		return false, err
	}
	return true, nil
}

func (s *notificationServiceImpl) MarkAllRead(ctx context.Context, recipientUID string) (int, error) {
	docs, err := s.store.Query(ctx, models.CollectionNotifications,
		[]docstore.Where{
			{Field: "uidDestinatario", Op: docstore.OpEqual, Value: recipientUID},
			{Field: "lida", Op: docstore.OpEqual, Value: false},
		}, nil, 0)
	if err != nil {
		s.logger.Error().Err(err).Str("recipient", recipientUID).Msg("Failed to query unread notifications")
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}

	writes := make([]docstore.Write, 0, len(docs))
	for _, doc := range docs {
		writes = append(writes, docstore.Write{
			Kind:       docstore.WriteMerge,
			Collection: models.CollectionNotifications,
			Key:        doc.Key,
			Fields:     map[string]interface{}{"lida": true},
		})
	}
	if err := s.store.Batch(ctx, writes); err != nil {
		s.logger.Error().Err(err).Str("recipient", recipientUID).Msg("Failed to mark all notifications read")
		return 0, err
	}
	return len(writes), nil
}

func (s *notificationServiceImpl) UnreadCount(ctx context.Context, recipientUID string) (int, error) {
	docs, err := s.store.Query(ctx, models.CollectionNotifications,
		[]docstore.Where{
			{Field: "uidDestinatario", Op: docstore.OpEqual, Value: recipientUID},
			{Field: "lida", Op: docstore.OpEqual, Value: false},
		}, nil, 0)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

func notificationsFromDocuments(docs []docstore.Document) []models.Notification {
	notifications := make([]models.Notification, 0, len(docs))
	for _, doc := range docs {
		notifications = append(notifications, models.NotificationFromDocument(doc))
	}
	return notifications
}
