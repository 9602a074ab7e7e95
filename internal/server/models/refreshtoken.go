package models

import "time"

// RefreshToken is the server-side record of one issued refresh token.
// Fingerprint is a keyed digest of the token, never the token itself.
type RefreshToken struct {
	ID          string
	UserID      string
	Fingerprint string
	ExpiresAt   time.Time
	IsRevoked   bool
	CreatedAt   time.Time
}

// IsExpired reports whether the record is no longer usable at now.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsLive reports whether the record is neither revoked nor expired at now.
func (t *RefreshToken) IsLive(now time.Time) bool {
	return !t.IsRevoked && !t.IsExpired(now)
}
