// Package refreshtokens declares the server-side store of refresh token
// records and its PostgreSQL, Redis and in-memory implementations.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/sentinelauth/internal/server/models"
)

// Store persists one record per issued refresh token.
//
// Records are only ever created or flipped to revoked; removing expired or
// revoked rows is left to housekeeping outside the store.
type Store interface {
	// Create inserts a new, non-revoked record. A duplicate fingerprint
	// yields common.ErrAlreadyExists.
	Create(ctx context.Context, userID, fingerprint string, expiresAt time.Time) (*models.RefreshToken, error)

	// FindByFingerprint returns the record with the exact fingerprint, or
	// common.ErrorNotFound.
	FindByFingerprint(ctx context.Context, fingerprint string) (*models.RefreshToken, error)

	// Revoke marks token revoked. Revoking a revoked or missing record is not an error.
	Revoke(ctx context.Context, token *models.RefreshToken) error

	// RevokeAllForUser revokes every non-revoked record of userID and
	// returns how many were flipped.
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)

	// Rotate revokes old and creates its successor for the same user as one
	// atomic step. The revoke is conditional: if old was already revoked
	// when the write lands, nothing is changed and common.ErrTokenRevoked is
	// returned. If old is gone (expired out of the backend) the result is
	// common.ErrorNotFound, and a taken newFingerprint gives
	// common.ErrAlreadyExists with old left live.
	Rotate(ctx context.Context, old *models.RefreshToken, newFingerprint string, newExpiresAt time.Time) (*models.RefreshToken, error)
}
