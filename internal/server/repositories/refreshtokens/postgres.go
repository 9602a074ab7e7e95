package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sentinelauth/internal/common"
	"github.com/dmitrijs2005/sentinelauth/internal/dbx"
	"github.com/dmitrijs2005/sentinelauth/internal/server/models"
)

// PostgresRepository runs refresh token statements over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx). It has no transaction logic of its own;
// PostgresStore composes it.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a live record for userID. An unknown user yields
// common.ErrorNotFound.
func (r *PostgresRepository) Create(ctx context.Context, userID, fingerprint string, expiresAt time.Time) (*models.RefreshToken, error) {
	query := `
		INSERT INTO refresh_tokens (user_id, fingerprint, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, is_revoked, created_at
	`
	token := &models.RefreshToken{UserID: userID, Fingerprint: fingerprint, ExpiresAt: expiresAt}
	err := r.db.QueryRowContext(ctx, query, userID, fingerprint, expiresAt).Scan(&token.ID, &token.IsRevoked, &token.CreatedAt)
	if err != nil {
		switch {
		case dbx.IsUniqueViolation(err):
			return nil, common.ErrAlreadyExists
		case dbx.IsForeignKeyViolation(err):
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return token, nil
}

// FindByFingerprint returns the record for fingerprint or common.ErrorNotFound.
func (r *PostgresRepository) FindByFingerprint(ctx context.Context, fingerprint string) (*models.RefreshToken, error) {
	query := `
		SELECT id, user_id, fingerprint, expires_at, is_revoked, created_at
		FROM refresh_tokens
		WHERE fingerprint = $1
	`
	token := &models.RefreshToken{}
	err := r.db.QueryRowContext(ctx, query, fingerprint).Scan(
		&token.ID, &token.UserID, &token.Fingerprint, &token.ExpiresAt, &token.IsRevoked, &token.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return token, nil
}

// Revoke sets is_revoked on the record with id. It is idempotent.
func (r *PostgresRepository) Revoke(ctx context.Context, id string) error {
	query := `
		UPDATE refresh_tokens
		SET is_revoked = TRUE
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// RevokeIfActive revokes the record with id only if it is not revoked yet.
// When no row changes it returns common.ErrTokenRevoked, or
// common.ErrorNotFound if the row is gone. Concurrent callers serialize on
// the row lock so exactly one of them sees a changed row.
func (r *PostgresRepository) RevokeIfActive(ctx context.Context, id string) error {
	query := `
		UPDATE refresh_tokens
		SET is_revoked = TRUE
		WHERE id = $1 AND is_revoked = FALSE
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return r.notRevokedReason(ctx, id)
	}
	return nil
}

func (r *PostgresRepository) notRevokedReason(ctx context.Context, id string) error {
	query := `
		SELECT is_revoked
		FROM refresh_tokens
		WHERE id = $1
	`
	var revoked bool
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&revoked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return common.ErrTokenRevoked
}

// RevokeAllForUser revokes every live record of userID.
func (r *PostgresRepository) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	query := `
		UPDATE refresh_tokens
		SET is_revoked = TRUE
		WHERE user_id = $1 AND is_revoked = FALSE
	`
	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
