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

// defaultSearchLimit caps name prefix searches when the caller does not
// pass a limit.
const defaultSearchLimit = 5

// ProfileUpdate carries a partial profile write; nil fields are left
// untouched by the merge.
type ProfileUpdate struct {
	Email    *string
	Name     *string
	PhotoURL *string
	Role     *models.RoleType
	Gender   *string
	Bio      *string
	JobTitle *string
	Skills   *[]string
}

// ProfileService owns the canonical user record, including the stored
// follower/following sets (which only RelationshipService mutates).
type ProfileService interface {
	// GetProfile resolves a profile by uid. A store failure degrades to a
	// placeholder profile instead of an error so profile rendering never
	// blocks on store trouble; only a genuine miss is reported, as
	// apperrors.ErrUserNotFound.
	GetProfile(ctx context.Context, uid string) (models.UserProfile, error)

	// UpsertProfile merge-writes the given fields onto the user document,
	// creating it when absent.
	UpsertProfile(ctx context.Context, uid string, update ProfileUpdate) error

	// SearchByNamePrefix returns up to limit profiles whose name starts
	// with term. A blank term returns no results without touching the
	// store.
	SearchByNamePrefix(ctx context.Context, term string, limit int) ([]models.UserProfile, error)
}

type profileServiceImpl struct {
	store  docstore.Gateway
	logger zerolog.Logger
}

// NewProfileService creates a new ProfileService
func NewProfileService(store docstore.Gateway, logger zerolog.Logger) ProfileService {
	return &profileServiceImpl{store: store, logger: logger}
}

func (s *profileServiceImpl) GetProfile(ctx context.Context, uid string) (models.UserProfile, error) {
	doc, err := s.store.Get(ctx, models.CollectionUsers, uid)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return models.UserProfile{}, apperrors.ErrUserNotFound
		}
		// Availability over consistency: downstream views keep working on
		// a placeholder while the store is unreachable.
		s.logger.Warn().Err(err).Str("uid", uid).Msg("Profile fetch failed, returning placeholder")
		return models.PlaceholderProfile(uid), nil
	}
	return models.ProfileFromDocument(doc), nil
}

func (s *profileServiceImpl) UpsertProfile(ctx context.Context, uid string, update ProfileUpdate) error {
	fields := make(map[string]interface{})
	if update.Email != nil {
		fields["email"] = *update.Email
	}
	if update.Name != nil {
		fields["nome"] = *update.Name
	}
	if update.PhotoURL != nil {
		fields["foto"] = *update.PhotoURL
	}
	if update.Role != nil {
		fields["role"] = string(*update.Role)
	}
	if update.Gender != nil {
		fields["genero"] = *update.Gender
	}
	if update.Bio != nil {
		fields["bio"] = *update.Bio
	}
	if update.JobTitle != nil {
		fields["cargo"] = *update.JobTitle
	}
	if update.Skills != nil {
		skills := make([]interface{}, 0, len(*update.Skills))
		for _, skill := range *update.Skills {
			skills = append(skills, skill)
		}
		fields["habilidades"] = skills
	}
	if len(fields) == 0 {
		return nil
	}

	if err := s.store.Merge(ctx, models.CollectionUsers, uid, fields); err != nil {
		s.logger.Error().Err(err).Str("uid", uid).Msg("Failed to upsert profile")
		return err
	}
	return nil
}

func (s *profileServiceImpl) SearchByNamePrefix(ctx context.Context, term string, limit int) ([]models.UserProfile, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	// Lexicographic range scan: [term, term+sentinel) covers every name
	// with the prefix. This is not fuzzy or full-text search.
	filters := []docstore.Where{
		{Field: "nome", Op: docstore.OpGreaterEqual, Value: term},
		{Field: "nome", Op: docstore.OpLessEqual, Value: term + docstore.PrefixSentinel},
	}
	docs, err := s.store.Query(ctx, models.CollectionUsers, filters, &docstore.Order{Field: "nome"}, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("term", term).Msg("Profile search failed")
		return nil, err
	}

	profiles := make([]models.UserProfile, 0, len(docs))
	for _, doc := range docs {
		profiles = append(profiles, models.ProfileFromDocument(doc))
	}
	return profiles, nil
}
