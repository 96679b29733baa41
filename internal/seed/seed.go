// Package seed creates the demo accounts used in development. It runs
// only when the users collection is empty.
package seed

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/sistempim/pimserver/internal/app/models"
	"github.com/sistempim/pimserver/internal/pkg/auth"
	"github.com/sistempim/pimserver/internal/pkg/docstore"
)

type demoAccount struct {
	uid      string
	name     string
	email    string
	password string
	role     models.RoleType
}

var demoAccounts = []demoAccount{
	{uid: "demo-professor", name: "Prof. Helena Costa", email: "helena.professor@sistempim.app", password: "pim-demo-2024", role: models.RoleTeacher},
	{uid: "demo-aluno-1", name: "João Pereira", email: "joao@sistempim.app", password: "pim-demo-2024", role: models.RoleStudent},
	{uid: "demo-aluno-2", name: "Maria Santos", email: "maria@sistempim.app", password: "pim-demo-2024", role: models.RoleStudent},
}

// CreateDefaultData seeds the demo accounts into an empty store.
func CreateDefaultData(ctx context.Context, store docstore.Gateway, lgr zerolog.Logger) error {
	existing, err := store.Query(ctx, models.CollectionUsers, nil, nil, 1)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		lgr.Debug().Msg("Users exist, skipping demo seed")
		return nil
	}

	lgr.Info().Msg("Seeding demo accounts...")
	var finalErr error
	for _, account := range demoAccounts {
		hash, err := auth.HashPassword(account.password)
		if err != nil {
			finalErr = errors.Join(finalErr, err)
			continue
		}
		err = store.Replace(ctx, models.CollectionUsers, account.uid, map[string]interface{}{
			"email":      account.email,
			"nome":       account.name,
			"role":       string(account.role),
			"senhaHash":  hash,
			"seguindo":   []interface{}{},
			"seguidores": []interface{}{},
		})
		if err != nil {
			lgr.Error().Err(err).Str("uid", account.uid).Msg("Failed to seed demo account")
			finalErr = errors.Join(finalErr, err)
		}
	}
	return finalErr
}
