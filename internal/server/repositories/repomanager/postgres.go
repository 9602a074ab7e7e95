// Package repomanager provides RepositoryManager implementations for
// PostgreSQL (schema managed with goose) and for process memory.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/sentinelauth/internal/server/migrations"
	"github.com/dmitrijs2005/sentinelauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/sentinelauth/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager keeps users in PostgreSQL. Refresh tokens live
// there too unless another Store is supplied with WithRefreshTokenStore.
type PostgresRepositoryManager struct {
	db            *sql.DB
	refreshTokens refreshtokens.Store
}

type Option func(*PostgresRepositoryManager)

// WithRefreshTokenStore moves refresh tokens to s, e.g. a Redis store.
func WithRefreshTokenStore(s refreshtokens.Store) Option {
	return func(m *PostgresRepositoryManager) {
		m.refreshTokens = s
	}
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager(db *sql.DB, opts ...Option) *PostgresRepositoryManager {
	m := &PostgresRepositoryManager{db: db}
	for _, opt := range opts {
		opt(m)
	}
	if m.refreshTokens == nil {
		m.refreshTokens = refreshtokens.NewPostgresStore(db)
	}
	return m
}

func (m *PostgresRepositoryManager) Conn() *sql.DB {
	return m.db
}

func (m *PostgresRepositoryManager) Users() users.Repository {
	return users.NewPostgresRepository(m.db)
}

func (m *PostgresRepositoryManager) RefreshTokens() refreshtokens.Store {
	return m.refreshTokens
}

// Seams for testing goose.
var (
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return goose.UpContext(ctx, db, dir, opts...)
	}
	gooseVersionContext = goose.GetDBVersionContext
)

func setupGoose() error {
	goose.SetBaseFS(migrations.Migrations)
	return goose.SetDialect("pgx")
}

// RunMigrations applies every pending embedded migration.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	if err := setupGoose(); err != nil {
		return err
	}
	return gooseUpContext(ctx, m.db, ".")
}

// SchemaVersion reports the latest applied migration.
func (m *PostgresRepositoryManager) SchemaVersion(ctx context.Context) (int64, error) {
	if err := setupGoose(); err != nil {
		return 0, err
	}
	return gooseVersionContext(ctx, m.db)
}
