package auth

import "time"

// Kind discriminates access tokens from refresh tokens. It travels in the
// "type" claim.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims is the closed set of decoded token variants: *AccessClaims and
// *RefreshClaims. Use a type switch or the typed Decode helpers.
type Claims interface {
	Kind() Kind
	claims()
}

// AccessClaims are carried by short-lived access tokens.
type AccessClaims struct {
	UserID    string
	Role      string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (*AccessClaims) Kind() Kind { return KindAccess }
func (*AccessClaims) claims() {}

// RefreshClaims are carried by long-lived refresh tokens. TokenID is random
// per token so that two refresh tokens for the same user never collide.
type RefreshClaims struct {
	UserID    string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (*RefreshClaims) Kind() Kind { return KindRefresh }
func (*RefreshClaims) claims() {}
