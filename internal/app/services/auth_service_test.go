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
	"github.com/sistempim/pimserver/internal/pkg/auth"
	"github.com/sistempim/pimserver/internal/pkg/docstore/memstore"
)

func newAuthFixture() AuthService {
	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:       "test-secret",
		AccessTokenExp:  time.Hour,
		RefreshTokenExp: 24 * time.Hour,
		TokenIssuer:     "test",
	})
	return NewAuthService(memstore.New(), jwtService, zerolog.Nop())
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newAuthFixture()

	profile, tokens, err := svc.Register(ctx, "João", "joao@sistempim.app", "segredo123")
	require.NoError(t, err)
	assert.Equal(t, "João", profile.Name)
	assert.Equal(t, models.RoleStudent, profile.Role)
	assert.NotEmpty(t, profile.UID)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)

	logged, tokens, err := svc.Login(ctx, "JOAO@sistempim.app", "segredo123")
	require.NoError(t, err)
	assert.Equal(t, profile.UID, logged.UID)
	assert.NotEmpty(t, tokens.AccessToken)
}

func TestRegisterTeacherRoleFromEmail(t *testing.T) {
	ctx := context.Background()
	svc := newAuthFixture()

	profile, _, err := svc.Register(ctx, "Helena", "helena.professor@sistempim.app", "segredo123")
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, profile.Role)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc := newAuthFixture()

	_, _, err := svc.Register(ctx, "João", "joao@sistempim.app", "segredo123")
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, "Outro", "joao@sistempim.app", "outrasenha")
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	svc := newAuthFixture()

	_, _, err := svc.Register(ctx, "João", "joao@sistempim.app", "segredo123")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "joao@sistempim.app", "errada")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	// Unknown e-mail is indistinguishable from a wrong password.
	_, _, err = svc.Login(ctx, "ghost@sistempim.app", "segredo123")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}
