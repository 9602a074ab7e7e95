// Package auth signs and verifies the server's JSON Web Tokens.
//
// Tokens are HS256 JWTs with the registered sub, jti, iat and exp claims plus
// a "type" discriminator and, for access tokens, a "role". The Codec never
// reads the wall clock: every call takes the instant to evaluate against.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sentinelauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// tokenClaims is the wire form shared by both kinds.
type tokenClaims struct {
	jwt.RegisteredClaims
	Type Kind   `json:"type"`
	Role string `json:"role,omitempty"`
}

// Codec issues and decodes access and refresh tokens.
type Codec struct {
	secretKey       []byte
	accessValidity  time.Duration
	refreshValidity time.Duration
	newID           func() string
}

// NewCodec returns a Codec signing with secretKey. Validities must be positive.
func NewCodec(secretKey []byte, accessValidity, refreshValidity time.Duration) (*Codec, error) {
	if len(secretKey) == 0 {
		return nil, fmt.Errorf("%w: empty signing key", common.ErrInvalidConfig)
	}
	if accessValidity <= 0 || refreshValidity <= 0 {
		return nil, fmt.Errorf("%w: token validity must be positive", common.ErrInvalidConfig)
	}
	key := make([]byte, len(secretKey))
	copy(key, secretKey)
	return &Codec{
		secretKey:       key,
		accessValidity:  accessValidity,
		refreshValidity: refreshValidity,
		newID:           uuid.NewString,
	}, nil
}

// AccessValidity is the lifetime stamped on access tokens.
func (c *Codec) AccessValidity() time.Duration { return c.accessValidity }

// RefreshExpiry is the exp IssueRefresh stamps on a token minted at now.
// Stores keep it as the record's expiry so both agree to the second.
func (c *Codec) RefreshExpiry(now time.Time) time.Time {
	return expiry(now, c.refreshValidity)
}

// expiry is now+validity rounded up to the whole second, the resolution of
// the exp claim on the wire. Rounding down would end a token early.
func expiry(now time.Time, validity time.Duration) time.Time {
	exp := now.Add(validity)
	if whole := exp.Truncate(time.Second); !whole.Equal(exp) {
		return whole.Add(time.Second)
	}
	return exp
}

// IssueAccess mints an access token for userID carrying role, valid from now
// for the access validity.
func (c *Codec) IssueAccess(userID, role string, now time.Time) (string, error) {
	return c.sign(tokenClaims{
		RegisteredClaims: c.registered(userID, now, c.accessValidity),
		Type:             KindAccess,
		Role:             role,
	})
}

// IssueRefresh mints a refresh token for userID, valid from now for the
// refresh validity.
func (c *Codec) IssueRefresh(userID string, now time.Time) (string, error) {
	return c.sign(tokenClaims{
		RegisteredClaims: c.registered(userID, now, c.refreshValidity),
		Type:             KindRefresh,
	})
}

// Decode verifies tokenString at instant now and returns its claims.
//
// Checks run in order: signature (common.ErrTokenForged, also used for
// anything unparseable), expiry (common.ErrTokenExpired; a token is valid
// only while now < exp, no leeway), then kind (common.ErrWrongTokenKind).
// exp is whole seconds, so a token minted at a fractional instant lives
// until the next second boundary after now+validity.
func (c *Codec) Decode(tokenString string, expected Kind, now time.Time) (Claims, error) {
	tc := &tokenClaims{}
	_, err := jwt.ParseWithClaims(tokenString, tc, c.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrTokenForged, err)
	}

	if tc.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", common.ErrInvalidToken)
	}
	if tc.Type != expected {
		return nil, common.ErrWrongTokenKind
	}

	issuedAt := time.Time{}
	if tc.IssuedAt != nil {
		issuedAt = tc.IssuedAt.Time
	}

	switch tc.Type {
	case KindAccess:
		return &AccessClaims{
			UserID:    tc.Subject,
			Role:      tc.Role,
			TokenID:   tc.ID,
			IssuedAt:  issuedAt,
			ExpiresAt: tc.ExpiresAt.Time,
		}, nil
	case KindRefresh:
		if tc.ID == "" {
			return nil, fmt.Errorf("%w: missing token id", common.ErrInvalidToken)
		}
		return &RefreshClaims{
			UserID:    tc.Subject,
			TokenID:   tc.ID,
			IssuedAt:  issuedAt,
			ExpiresAt: tc.ExpiresAt.Time,
		}, nil
	default:
		return nil, common.ErrWrongTokenKind
	}
}

// DecodeAccess is Decode with expected kind access.
func (c *Codec) DecodeAccess(tokenString string, now time.Time) (*AccessClaims, error) {
	claims, err := c.Decode(tokenString, KindAccess, now)
	if err != nil {
		return nil, err
	}
	return claims.(*AccessClaims), nil
}

// DecodeRefresh is Decode with expected kind refresh.
func (c *Codec) DecodeRefresh(tokenString string, now time.Time) (*RefreshClaims, error) {
	claims, err := c.Decode(tokenString, KindRefresh, now)
	if err != nil {
		return nil, err
	}
	return claims.(*RefreshClaims), nil
}

func (c *Codec) registered(userID string, now time.Time, validity time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   userID,
		ID:        c.newID(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiry(now, validity)),
	}
}

func (c *Codec) sign(claims tokenClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(c.secretKey)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

func (c *Codec) keyFunc(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}
	return c.secretKey, nil
}
