package repomanager

import (
	"context"

	"github.com/dmitrijs2005/sentinelauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/sentinelauth/internal/server/repositories/users"
)

// RepositoryManager hands out the stores of one deployment and owns its
// schema lifecycle.
type RepositoryManager interface {
	RunMigrations(context.Context) error
	SchemaVersion(context.Context) (int64, error)
	Users() users.Repository
	RefreshTokens() refreshtokens.Store
}
