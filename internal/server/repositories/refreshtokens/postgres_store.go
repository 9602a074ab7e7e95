package refreshtokens

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/sentinelauth/internal/dbx"
	"github.com/dmitrijs2005/sentinelauth/internal/server/models"
)

// PostgresStore implements Store on a PostgreSQL pool.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, userID, fingerprint string, expiresAt time.Time) (*models.RefreshToken, error) {
	return NewPostgresRepository(s.db).Create(ctx, userID, fingerprint, expiresAt)
}

func (s *PostgresStore) FindByFingerprint(ctx context.Context, fingerprint string) (*models.RefreshToken, error) {
	return NewPostgresRepository(s.db).FindByFingerprint(ctx, fingerprint)
}

func (s *PostgresStore) Revoke(ctx context.Context, token *models.RefreshToken) error {
	return NewPostgresRepository(s.db).Revoke(ctx, token.ID)
}

func (s *PostgresStore) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	return NewPostgresRepository(s.db).RevokeAllForUser(ctx, userID)
}

// Rotate runs the conditional revoke and the insert in one transaction.
func (s *PostgresStore) Rotate(ctx context.Context, old *models.RefreshToken, newFingerprint string, newExpiresAt time.Time) (*models.RefreshToken, error) {
	var created *models.RefreshToken
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewPostgresRepository(tx)
		if err := repo.RevokeIfActive(ctx, old.ID); err != nil {
			return err
		}
		var err error
		created, err = repo.Create(ctx, old.UserID, newFingerprint, newExpiresAt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
