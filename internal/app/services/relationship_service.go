package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/sistempim/pimserver/internal/app/models"
	"github.com/sistempim/pimserver/internal/pkg/apperrors"
	"github.com/sistempim/pimserver/internal/pkg/docstore"
)

// RelationshipService maintains the mutual follow graph over user
// documents. Every edge mutation covers both sides (actor's 'seguindo',
// target's 'seguidores') in one atomic batch, so the graph can not be
// left asymmetric by a failure between the two writes.
type RelationshipService interface {
	// Follow adds the edge actor->target. Following an already-followed
	// target is a no-op; the returned flag reports whether state changed.
	Follow(ctx context.Context, actorUID, targetUID string) (bool, error)

	// Unfollow removes the edge; removing a missing edge is a no-op.
	Unfollow(ctx context.Context, actorUID, targetUID string) (bool, error)

	// IsFollowing tests the edge by membership in the target's follower
	// set, which is the side the viewing UI has loaded.
	IsFollowing(ctx context.Context, actorUID, targetUID string) (bool, error)

	// ListFollowing resolves the actor's following set to profiles.
	// Entries whose lookup fails are dropped, not surfaced as errors.
	ListFollowing(ctx context.Context, uid string) ([]models.UserProfile, error)
}

type relationshipServiceImpl struct {
	store  docstore.Gateway
	logger zerolog.Logger
}

// NewRelationshipService creates a new RelationshipService
func NewRelationshipService(store docstore.Gateway, logger zerolog.Logger) RelationshipService {
	return &relationshipServiceImpl{store: store, logger: logger}
}

func (s *relationshipServiceImpl) Follow(ctx context.Context, actorUID, targetUID string) (bool, error) {
	if actorUID == targetUID {
		return false, apperrors.NewCustomError(apperrors.ErrInvalidArgument, "cannot follow yourself")
	}

	target, err := s.store.Get(ctx, models.CollectionUsers, targetUID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return false, apperrors.ErrUserNotFound
		}
		return false, err
	}

	if containsUID(models.ProfileFromDocument(target).Followers, actorUID) {
		return false, nil
	}

	err = s.store.Batch(ctx, []docstore.Write{
		{
			Kind:       docstore.WriteMerge,
			Collection: models.CollectionUsers,
			Key:        actorUID,
			Fields:     map[string]interface{}{"seguindo": docstore.ArrayUnion(targetUID)},
		},
		{
			Kind:       docstore.WriteMerge,
			Collection: models.CollectionUsers,
			Key:        targetUID,
			Fields:     map[string]interface{}{"seguidores": docstore.ArrayUnion(actorUID)},
		},
	})
	if err != nil {
		s.logger.Error().Err(err).Str("actor", actorUID).Str("target", targetUID).Msg("Follow batch failed")
		return false, err
	}
	return true, nil
}

func (s *relationshipServiceImpl) Unfollow(ctx context.Context, actorUID, targetUID string) (bool, error) {
	if actorUID == targetUID {
		return false, apperrors.NewCustomError(apperrors.ErrInvalidArgument, "cannot unfollow yourself")
	}

	target, err := s.store.Get(ctx, models.CollectionUsers, targetUID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return false, apperrors.ErrUserNotFound
		}
		return false, err
	}

	if !containsUID(models.ProfileFromDocument(target).Followers, actorUID) {
		return false, nil
	}

	err = s.store.Batch(ctx, []docstore.Write{
		{
			Kind:       docstore.WriteMerge,
			Collection: models.CollectionUsers,
			Key:        actorUID,
			Fields:     map[string]interface{}{"seguindo": docstore.ArrayRemove(targetUID)},
		},
		{
			Kind:       docstore.WriteMerge,
			Collection: models.CollectionUsers,
			Key:        targetUID,
			Fields:     map[string]interface{}{"seguidores": docstore.ArrayRemove(actorUID)},
		},
	})
	if err != nil {
		s.logger.Error().Err(err).Str("actor", actorUID).Str("target", targetUID).Msg("Unfollow batch failed")
		return false, err
	}
	return true, nil
}

func (s *relationshipServiceImpl) IsFollowing(ctx context.Context, actorUID, targetUID string) (bool, error) {
	target, err := s.store.Get(ctx, models.CollectionUsers, targetUID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return containsUID(models.ProfileFromDocument(target).Followers, actorUID), nil
}

func (s *relationshipServiceImpl) ListFollowing(ctx context.Context, uid string) ([]models.UserProfile, error) {
	doc, err := s.store.Get(ctx, models.CollectionUsers, uid)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}

	following := models.ProfileFromDocument(doc).Following
	profiles := make([]models.UserProfile, 0, len(following))
	for _, followedUID := range following {
		followedDoc, err := s.store.Get(ctx, models.CollectionUsers, followedUID)
		if err != nil {
			// Stale edges (deleted or unreachable profiles) are dropped
			// rather than failing the whole listing.
			s.logger.Warn().Err(err).Str("uid", uid).Str("followed", followedUID).Msg("Dropping unresolvable following entry")
			continue
		}
		profiles = append(profiles, models.ProfileFromDocument(followedDoc))
	}
	return profiles, nil
}

func containsUID(uids []string, uid string) bool {
	for _, candidate := range uids {
		if candidate == uid {
			return true
		}
	}
	return false
}
