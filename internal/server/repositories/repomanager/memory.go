package repomanager

import (
	"context"

	"github.com/dmitrijs2005/sentinelauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/sentinelauth/internal/server/repositories/users"
)

// InMemoryRepositoryManager keeps everything in process. It has no schema.
type InMemoryRepositoryManager struct {
	users         *users.MemoryRepository
	refreshTokens *refreshtokens.MemoryStore
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{
		users:         users.NewMemoryRepository(),
		refreshTokens: refreshtokens.NewMemoryStore(nil),
	}
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context) error {
	return nil
}

func (m *InMemoryRepositoryManager) SchemaVersion(context.Context) (int64, error) {
	return 0, nil
}

func (m *InMemoryRepositoryManager) Users() users.Repository {
	return m.users
}

func (m *InMemoryRepositoryManager) RefreshTokens() refreshtokens.Store {
	return m.refreshTokens
}
