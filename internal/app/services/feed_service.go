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

// FeedService owns the public post feed: creation, listing and the
// like toggle.
type FeedService interface {
	// CreatePost publishes a feed post authored by the given user.
	CreatePost(ctx context.Context, author models.UserProfile, content, mediaURL string) (models.Post, error)

	// ListPosts returns the feed newest-first, up to limit entries
	// (0 means no limit).
	ListPosts(ctx context.Context, limit int) ([]models.Post, error)

	// ToggleLike flips the actor's like on a post and reports the
	// resulting state.
	ToggleLike(ctx context.Context, postID, actorUID string) (bool, error)

	// DeletePost removes a post. Author only.
	DeletePost(ctx context.Context, postID, actorUID string) error
}

type feedServiceImpl struct {
	store  docstore.Gateway
	logger zerolog.Logger
}

// NewFeedService creates a new FeedService
func NewFeedService(store docstore.Gateway, logger zerolog.Logger) FeedService {
	return &feedServiceImpl{store: store, logger: logger}
}

func (s *feedServiceImpl) CreatePost(ctx context.Context, author models.UserProfile, content, mediaURL string) (models.Post, error) {
	if strings.TrimSpace(content) == "" && mediaURL == "" {
		return models.Post{}, apperrors.NewCustomError(apperrors.ErrInvalidArgument, "a post needs content or media")
	}

	key, err := s.store.Add(ctx, models.CollectionPosts, map[string]interface{}{
		"content":   content,
		"userId":    author.UID,
		"userName":  author.Name,
		"userPhoto": author.PhotoURL,
		"mediaUrl":  mediaURL,
		"likes":     []interface{}{},
		"createdAt": docstore.ServerTimestamp,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("author", author.UID).Msg("Failed to create post")
		return models.Post{}, err
	}

	doc, err := s.store.Get(ctx, models.CollectionPosts, key)
	if err != nil {
		return models.Post{}, err
	}
	return models.PostFromDocument(doc), nil
}

func (s *feedServiceImpl) ListPosts(ctx context.Context, limit int) ([]models.Post, error) {
	docs, err := s.store.Query(ctx, models.CollectionPosts, nil,
		&docstore.Order{Field: "createdAt", Desc: true}, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list posts")
		return nil, err
	}

	posts := make([]models.Post, 0, len(docs))
	for _, doc := range docs {
		posts = append(posts, models.PostFromDocument(doc))
	}
	return posts, nil
}

func (s *feedServiceImpl) ToggleLike(ctx context.Context, postID, actorUID string) (bool, error) {
	doc, err := s.store.Get(ctx, models.CollectionPosts, postID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return false, apperrors.NewResourceNotFoundError("post not found")
		}
		return false, err
	}

	liked := containsUID(models.PostFromDocument(doc).Likes, actorUID)
	var fields map[string]interface{}
	if liked {
		fields = map[string]interface{}{"likes": docstore.ArrayRemove(actorUID)}
	} else {
		fields = map[string]interface{}{"likes": docstore.ArrayUnion(actorUID)}
	}

	if err := s.store.Merge(ctx, models.CollectionPosts, postID, fields); err != nil {
		s.logger.Error().Err(err).Str("post", postID).Str("actor", actorUID).Msg("Failed to toggle like")
		return false, err
	}
	return !liked, nil
}

func (s *feedServiceImpl) DeletePost(ctx context.Context, postID, actorUID string) error {
	doc, err := s.store.Get(ctx, models.CollectionPosts, postID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return apperrors.NewResourceNotFoundError("post not found")
		}
		return err
	}
	if models.PostFromDocument(doc).AuthorUID != actorUID {
		return apperrors.NewForbiddenError("only the author can delete a post")
	}
	return s.store.Delete(ctx, models.CollectionPosts, postID)
}
