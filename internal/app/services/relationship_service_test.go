package services

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sistempim/pimserver/internal/app/models"
	"github.com/sistempim/pimserver/internal/pkg/apperrors"
	"github.com/sistempim/pimserver/internal/pkg/docstore/memstore"
)

func seedUser(t *testing.T, store *memstore.Store, uid, name string) {
	t.Helper()
	err := store.Replace(context.Background(), models.CollectionUsers, uid, map[string]interface{}{
		"nome":       name,
		"seguindo":   []interface{}{},
		"seguidores": []interface{}{},
	})
	require.NoError(t, err)
}

func TestFollowRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewRelationshipService(store, zerolog.Nop())
	seedUser(t, store, "a", "Ana")
	seedUser(t, store, "b", "Beto")

	changed, err := svc.Follow(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, changed)

	following, err := svc.IsFollowing(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, following)

	// The reverse edge must not exist.
	reverse, err := svc.IsFollowing(ctx, "b", "a")
	require.NoError(t, err)
	assert.False(t, reverse)
}

func TestFollowIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewRelationshipService(store, zerolog.Nop())
	seedUser(t, store, "a", "Ana")
	seedUser(t, store, "b", "Beto")

	_, err := svc.Follow(ctx, "a", "b")
	require.NoError(t, err)

	changed, err := svc.Follow(ctx, "a", "b")
	require.NoError(t, err)
	assert.False(t, changed, "second follow must be a no-op")

	// The sets hold exactly one entry each.
	profiles, err := svc.ListFollowing(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, profiles, 1)
}

func TestUnfollowRestoresInitialState(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewRelationshipService(store, zerolog.Nop())
	seedUser(t, store, "a", "Ana")
	seedUser(t, store, "b", "Beto")

	_, err := svc.Follow(ctx, "a", "b")
	require.NoError(t, err)

	changed, err := svc.Unfollow(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, changed)

	following, err := svc.IsFollowing(ctx, "a", "b")
	require.NoError(t, err)
	assert.False(t, following)

	// Unfollowing again changes nothing.
	changed, err = svc.Unfollow(ctx, "a", "b")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestFollowSelfRejected(t *testing.T) {
	store := memstore.New()
	svc := NewRelationshipService(store, zerolog.Nop())
	seedUser(t, store, "a", "Ana")

	_, err := svc.Follow(context.Background(), "a", "a")
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func TestFollowUnknownTarget(t *testing.T) {
	store := memstore.New()
	svc := NewRelationshipService(store, zerolog.Nop())
	seedUser(t, store, "a", "Ana")

	_, err := svc.Follow(context.Background(), "a", "ghost")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestListFollowingDropsUnresolvableEntries(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewRelationshipService(store, zerolog.Nop())
	seedUser(t, store, "a", "Ana")
	seedUser(t, store, "b", "Beto")
	seedUser(t, store, "c", "Caio")

	_, err := svc.Follow(ctx, "a", "b")
	require.NoError(t, err)
	_, err = svc.Follow(ctx, "a", "c")
	require.NoError(t, err)

	// Deleting one followed profile leaves a stale edge behind.
	require.NoError(t, store.Delete(ctx, models.CollectionUsers, "c"))

	profiles, err := svc.ListFollowing(ctx, "a")
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "Beto", profiles[0].Name)
}
