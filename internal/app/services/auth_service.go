package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sistempim/pimserver/internal/app/models"
	"github.com/sistempim/pimserver/internal/pkg/apperrors"
	"github.com/sistempim/pimserver/internal/pkg/auth"
	"github.com/sistempim/pimserver/internal/pkg/docstore"
)

// AuthTokens carries the credentials issued on a successful register or
// login.
type AuthTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// AuthService handles account creation and password authentication.
// Sign-out is a client-side token discard and has no server operation.
type AuthService interface {
	// Register creates an account and its profile document, and signs the
	// new user in. A taken e-mail yields ErrEmailAlreadyExists.
	Register(ctx context.Context, name, email, password string) (models.UserProfile, AuthTokens, error)

	// Login verifies the password and issues tokens. Wrong e-mail and
	// wrong password are indistinguishable to the caller.
	Login(ctx context.Context, email, password string) (models.UserProfile, AuthTokens, error)
}

type authServiceImpl struct {
	store      docstore.Gateway
	jwtService *auth.JWTService
	logger     zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(store docstore.Gateway, jwtService *auth.JWTService, logger zerolog.Logger) AuthService {
	return &authServiceImpl{store: store, jwtService: jwtService, logger: logger}
}

func (s *authServiceImpl) Register(ctx context.Context, name, email, password string) (models.UserProfile, AuthTokens, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	existing, err := s.store.Query(ctx, models.CollectionUsers,
		[]docstore.Where{{Field: "email", Op: docstore.OpEqual, Value: email}}, nil, 1)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to check e-mail availability")
		return models.UserProfile{}, AuthTokens{}, err
	}
	if len(existing) > 0 {
		return models.UserProfile{}, AuthTokens{}, apperrors.ErrEmailAlreadyExists
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.UserProfile{}, AuthTokens{}, err
	}

	// Institutional address convention: staff addresses carry "professor".
	role := models.RoleStudent
	if strings.Contains(email, "professor") {
		role = models.RoleTeacher
	}

	uid := uuid.New().String()
	err = s.store.Replace(ctx, models.CollectionUsers, uid, map[string]interface{}{
		"email":      email,
		"nome":       name,
		"role":       string(role),
		"senhaHash":  hash,
		"seguindo":   []interface{}{},
		"seguidores": []interface{}{},
	})
	if err != nil {
		s.logger.Error().Err(err).Str("uid", uid).Msg("Failed to create user")
		return models.UserProfile{}, AuthTokens{}, err
	}

	s.logger.Info().Str("uid", uid).Str("role", string(role)).Msg("User registered")
	return s.issueTokens(uid, email, role, map[string]interface{}{"nome": name, "role": string(role)})
}

func (s *authServiceImpl) Login(ctx context.Context, email, password string) (models.UserProfile, AuthTokens, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	docs, err := s.store.Query(ctx, models.CollectionUsers,
		[]docstore.Where{{Field: "email", Op: docstore.OpEqual, Value: email}}, nil, 1)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to look up user by e-mail")
		return models.UserProfile{}, AuthTokens{}, err
	}
	if len(docs) == 0 {
		return models.UserProfile{}, AuthTokens{}, apperrors.ErrInvalidCredentials
	}

	doc := docs[0]
	storedHash, _ := doc.Fields["senhaHash"].(string)
	if !auth.CheckPassword(storedHash, password) {
		return models.UserProfile{}, AuthTokens{}, apperrors.ErrInvalidCredentials
	}

	profile := models.ProfileFromDocument(doc)
	accessToken, refreshToken, expiresIn, _, err := s.jwtService.GenerateTokenPair(profile.UID, profile.Email, string(profile.Role))
	if err != nil {
		return models.UserProfile{}, AuthTokens{}, err
	}
	return profile, AuthTokens{AccessToken: accessToken, RefreshToken: refreshToken, ExpiresIn: expiresIn}, nil
}

func (s *authServiceImpl) issueTokens(uid, email string, role models.RoleType, extra map[string]interface{}) (models.UserProfile, AuthTokens, error) {
	accessToken, refreshToken, expiresIn, _, err := s.jwtService.GenerateTokenPair(uid, email, string(role))
	if err != nil {
		return models.UserProfile{}, AuthTokens{}, err
	}

	fields := map[string]interface{}{"email": email}
	for k, v := range extra {
		fields[k] = v
	}
	profile := models.ProfileFromDocument(docstore.Document{Key: uid, Fields: fields})
	return profile, AuthTokens{AccessToken: accessToken, RefreshToken: refreshToken, ExpiresIn: expiresIn}, nil
}
