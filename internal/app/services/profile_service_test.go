package services

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sistempim/pimserver/internal/app/models"
	"github.com/sistempim/pimserver/internal/pkg/apperrors"
	"github.com/sistempim/pimserver/internal/pkg/docstore"
	"github.com/sistempim/pimserver/internal/pkg/docstore/memstore"
)

// brokenGateway fails every read to exercise the degraded profile path.
type brokenGateway struct {
	docstore.Gateway
}

func (brokenGateway) Get(ctx context.Context, collection, key string) (docstore.Document, error) {
	return docstore.Document{}, errors.New("store unreachable")
}

func TestGetProfileMapsStoredFields(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewProfileService(store, zerolog.Nop())

	require.NoError(t, store.Replace(ctx, models.CollectionUsers, "u1", map[string]interface{}{
		"nome":        "Ana Lima",
		"email":       "ana@sistempim.app",
		"role":        "TEACHER",
		"bio":         "ensino cálculo",
		"habilidades": []interface{}{"matemática", "física"},
	}))

	profile, err := svc.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana Lima", profile.Name)
	assert.Equal(t, models.RoleTeacher, profile.Role)
	assert.Equal(t, []string{"matemática", "física"}, profile.Skills)
}

func TestGetProfileMissReturnsNotFound(t *testing.T) {
	svc := NewProfileService(memstore.New(), zerolog.Nop())
	_, err := svc.GetProfile(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestGetProfileDegradesOnStoreFailure(t *testing.T) {
	svc := NewProfileService(brokenGateway{}, zerolog.Nop())

	profile, err := svc.GetProfile(context.Background(), "u1")
	require.NoError(t, err, "store failures must not surface")
	assert.Equal(t, "u1", profile.UID)
	assert.NotEmpty(t, profile.Name)
	assert.Empty(t, profile.Email)
}

func TestUpsertProfileMergesPartialUpdate(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewProfileService(store, zerolog.Nop())

	name := "Ana"
	bio := "oi"
	require.NoError(t, svc.UpsertProfile(ctx, "u1", ProfileUpdate{Name: &name, Bio: &bio}))

	// A later partial update keeps earlier fields.
	job := "monitora"
	require.NoError(t, svc.UpsertProfile(ctx, "u1", ProfileUpdate{JobTitle: &job}))

	profile, err := svc.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", profile.Name)
	assert.Equal(t, "oi", profile.Bio)
	assert.Equal(t, "monitora", profile.JobTitle)
}

func TestSearchByNamePrefix(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewProfileService(store, zerolog.Nop())

	for uid, name := range map[string]string{
		"u1": "Ana Lima",
		"u2": "Anabela Souza",
		"u3": "Beto Alves",
	} {
		require.NoError(t, store.Replace(ctx, models.CollectionUsers, uid, map[string]interface{}{"nome": name}))
	}

	results, err := svc.SearchByNamePrefix(ctx, "Ana", 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Ana Lima", results[0].Name)
	assert.Equal(t, "Anabela Souza", results[1].Name)

	none, err := svc.SearchByNamePrefix(ctx, "Zeca", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSearchBlankTermSkipsStore(t *testing.T) {
	// The broken gateway would fail any query, proving none is issued.
	svc := NewProfileService(brokenGateway{}, zerolog.Nop())

	results, err := svc.SearchByNamePrefix(context.Background(), "   ", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchHonorsLimit(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewProfileService(store, zerolog.Nop())

	names := []string{"Ana A", "Ana B", "Ana C", "Ana D", "Ana E", "Ana F", "Ana G"}
	for i, name := range names {
		require.NoError(t, store.Replace(ctx, models.CollectionUsers, string(rune('a'+i)), map[string]interface{}{"nome": name}))
	}

	results, err := svc.SearchByNamePrefix(ctx, "Ana", 0)
	require.NoError(t, err)
	assert.Len(t, results, defaultSearchLimit)

	results, err = svc.SearchByNamePrefix(ctx, "Ana", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
