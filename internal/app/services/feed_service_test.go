package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sistempim/pimserver/internal/pkg/apperrors"
	"github.com/sistempim/pimserver/internal/pkg/docstore/memstore"
)

func TestCreateAndListPosts(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)
	store := memstore.NewWithClock(func() time.Time { return now })
	svc := NewFeedService(store, zerolog.Nop())

	author := studentProfile("s1", "João")
	_, err := svc.CreatePost(ctx, author, "primeiro", "")
	require.NoError(t, err)
	now = now.Add(time.Minute)
	_, err = svc.CreatePost(ctx, author, "segundo", "")
	require.NoError(t, err)

	posts, err := svc.ListPosts(ctx, 0)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "segundo", posts[0].Content)
	assert.Equal(t, "João", posts[0].AuthorName)
}

func TestCreatePostRequiresContentOrMedia(t *testing.T) {
	svc := NewFeedService(memstore.New(), zerolog.Nop())

	_, err := svc.CreatePost(context.Background(), studentProfile("s1", "João"), "   ", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	_, err = svc.CreatePost(context.Background(), studentProfile("s1", "João"), "", "https://cdn/img.png")
	assert.NoError(t, err)
}

func TestToggleLike(t *testing.T) {
	ctx := context.Background()
	svc := NewFeedService(memstore.New(), zerolog.Nop())

	post, err := svc.CreatePost(ctx, studentProfile("s1", "João"), "oi", "")
	require.NoError(t, err)

	liked, err := svc.ToggleLike(ctx, post.ID, "s2")
	require.NoError(t, err)
	assert.True(t, liked)

	liked, err = svc.ToggleLike(ctx, post.ID, "s2")
	require.NoError(t, err)
	assert.False(t, liked)

	posts, err := svc.ListPosts(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, posts[0].Likes)
}

func TestDeletePostAuthorOnly(t *testing.T) {
	ctx := context.Background()
	svc := NewFeedService(memstore.New(), zerolog.Nop())

	post, err := svc.CreatePost(ctx, studentProfile("s1", "João"), "oi", "")
	require.NoError(t, err)

	err = svc.DeletePost(ctx, post.ID, "s2")
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	require.NoError(t, svc.DeletePost(ctx, post.ID, "s1"))
	posts, err := svc.ListPosts(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, posts)
}
