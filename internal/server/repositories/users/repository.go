// Package users is the directory of identities the authentication service
// logs in against.
package users

import (
	"context"

	"github.com/dmitrijs2005/sentinelauth/internal/server/models"
)

// Repository looks identities up by username or id. Lookups and updates of
// unknown identities return common.ErrorNotFound; Create returns
// common.ErrAlreadyExists for a taken username.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error

	// List returns up to limit identities after skipping offset of them,
	// oldest first.
	List(ctx context.Context, offset, limit int) ([]*models.User, error)
}
