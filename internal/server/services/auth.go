// Package services contains server-side business logic. AuthService logs
// identities in, rotates their refresh tokens on every use, and revokes a
// user's whole token set when a superseded refresh token is replayed.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/sentinelauth/internal/common"
	"github.com/dmitrijs2005/sentinelauth/internal/cryptox"
	"github.com/dmitrijs2005/sentinelauth/internal/logging"
	"github.com/dmitrijs2005/sentinelauth/internal/server/auth"
	"github.com/dmitrijs2005/sentinelauth/internal/server/models"
	"github.com/dmitrijs2005/sentinelauth/internal/server/password"
	"github.com/dmitrijs2005/sentinelauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/sentinelauth/internal/server/repositories/users"
)

// MinPasswordLength is the shortest password Register accepts, in bytes.
const MinPasswordLength = 8

// ListUsers page sizes.
const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
}

// AuthService provides authentication-related operations:
// - Register: create identities
// - Login: verify credentials and mint a token pair
// - Refresh: rotate a refresh token, detecting replays of rotated ones
// - Logout / LogoutAll: revoke one or every refresh token of a user
// - Authenticate: check an access token
// - ListUsers: page through identities
//
// Every operation that depends on time takes now from the caller.
type AuthService struct {
	users        users.Repository
	tokens       refreshtokens.Store
	codec        *auth.Codec
	hasher       *password.Hasher
	fingerprints *cryptox.Fingerprinter
	logger       logging.Logger

	// dummyDigest is verified against when the username is unknown so that
	// both failure paths cost one argon2 evaluation.
	dummyDigest string
}

// NewAuthService wires the service to its collaborators.
func NewAuthService(
	u users.Repository,
	t refreshtokens.Store,
	codec *auth.Codec,
	hasher *password.Hasher,
	fingerprints *cryptox.Fingerprinter,
	logger logging.Logger,
) (*AuthService, error) {
	filler, err := cryptox.MakeRandHexString(16)
	if err != nil {
		return nil, err
	}
	dummy, err := hasher.Hash(filler)
	if err != nil {
		return nil, err
	}

	return &AuthService{
		users:        u,
		tokens:       t,
		codec:        codec,
		hasher:       hasher,
		fingerprints: fingerprints,
		logger:       logger,
		dummyDigest:  dummy,
	}, nil
}

// Register creates an active identity. An empty role defaults to
// common.RoleUser.
func (s *AuthService) Register(ctx context.Context, username, plaintext, role string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, common.ErrInvalidUsername
	}
	if len(plaintext) < MinPasswordLength {
		return nil, common.ErrWeakPassword
	}
	if role == "" {
		role = common.RoleUser
	}

	digest, err := s.hasher.Hash(plaintext)
	if err != nil {
		s.logger.Error(ctx, "password hashing failed", "error", err)
		return nil, common.ErrorInternal
	}

	user, err := s.users.Create(ctx, &models.User{
		UserName:     username,
		PasswordHash: digest,
		Role:         role,
		IsActive:     true,
	})
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, common.ErrAlreadyExists
		}
		s.logger.Error(ctx, "error creating user", "error", err)
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Login verifies the credentials and starts a new refresh token lineage.
// Unknown usernames, inactive identities and wrong passwords all yield
// common.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, plaintext string, now time.Time) (*TokenPair, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Verify(plaintext, s.dummyDigest)
			s.logger.Info(ctx, "login failed", "username", username)
			return nil, common.ErrInvalidCredentials
		}
		s.logger.Error(ctx, "error looking up user", "error", err)
		return nil, common.ErrorInternal
	}

	if !s.hasher.Verify(plaintext, user.PasswordHash) || !user.IsActive {
		s.logger.Info(ctx, "login failed", "username", username)
		return nil, common.ErrInvalidCredentials
	}
	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.upgradePasswordHash(ctx, user.ID, plaintext)
	}

	pair, refresh, err := s.issuePair(user, now)
	if err != nil {
		s.logger.Error(ctx, "error issuing tokens", "error", err)
		return nil, common.ErrorInternal
	}

	if _, err := s.tokens.Create(ctx, user.ID, s.fingerprints.Fingerprint(refresh), s.refreshExpiry(now)); err != nil {
		s.logger.Error(ctx, "error storing refresh token", "user_id", user.ID, "error", err)
		return nil, common.ErrorInternal
	}

	s.logger.Debug(ctx, "login succeeded", "user_id", user.ID)
	return pair, nil
}

// Refresh exchanges a live refresh token for a new pair and revokes the
// presented one. Presenting a token that was already rotated or logged out
// revokes every refresh token of its owner and yields
// common.ErrTokenReuseDetected. Every other rejection is
// common.ErrInvalidRefreshToken.
func (s *AuthService) Refresh(ctx context.Context, presented string, now time.Time) (*TokenPair, error) {
	claims, err := s.codec.DecodeRefresh(presented, now)
	if err != nil {
		s.logger.Debug(ctx, "refresh token rejected", "reason", err)
		return nil, common.ErrInvalidRefreshToken
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidRefreshToken
		}
		s.logger.Error(ctx, "error looking up user", "user_id", claims.UserID, "error", err)
		return nil, common.ErrorInternal
	}
	if !user.IsActive {
		return nil, common.ErrInvalidRefreshToken
	}

	record, err := s.tokens.FindByFingerprint(ctx, s.fingerprints.Fingerprint(presented))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidRefreshToken
		}
		s.logger.Error(ctx, "error looking up refresh token", "user_id", user.ID, "error", err)
		return nil, common.ErrorInternal
	}
	if record.UserID != user.ID {
		return nil, common.ErrInvalidRefreshToken
	}

	if record.IsRevoked {
		return nil, s.reuseDetected(ctx, user.ID, record.ID)
	}
	if record.IsExpired(now) {
		return nil, common.ErrInvalidRefreshToken
	}

	pair, refresh, err := s.issuePair(user, now)
	if err != nil {
		s.logger.Error(ctx, "error issuing tokens", "error", err)
		return nil, common.ErrorInternal
	}

	next, err := s.tokens.Rotate(ctx, record, s.fingerprints.Fingerprint(refresh), s.refreshExpiry(now))
	if err != nil {
		if errors.Is(err, common.ErrTokenRevoked) {
			// Lost the race to a concurrent use of the same token.
			return nil, s.reuseDetected(ctx, user.ID, record.ID)
		}
		if errors.Is(err, common.ErrorNotFound) {
			// Expired out of the store after the lookup.
			s.logger.Debug(ctx, "refresh token vanished before rotation", "user_id", user.ID, "record_id", record.ID)
			return nil, common.ErrInvalidRefreshToken
		}
		s.logger.Error(ctx, "error rotating refresh token", "user_id", user.ID, "record_id", record.ID, "error", err)
		return nil, common.ErrorInternal
	}

	s.logger.Debug(ctx, "refresh token rotated", "user_id", user.ID, "record_id", record.ID, "next_record_id", next.ID)
	return pair, nil
}

// Logout revokes the presented refresh token. Tokens that do not decode or
// are unknown are ignored, so the result says nothing about the token.
func (s *AuthService) Logout(ctx context.Context, presented string, now time.Time) error {
	claims, err := s.codec.DecodeRefresh(presented, now)
	if err != nil {
		return nil
	}

	record, err := s.tokens.FindByFingerprint(ctx, s.fingerprints.Fingerprint(presented))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		s.logger.Error(ctx, "error looking up refresh token", "user_id", claims.UserID, "error", err)
		return common.ErrorInternal
	}
	if record.UserID != claims.UserID {
		return nil
	}

	if err := s.tokens.Revoke(ctx, record); err != nil {
		s.logger.Error(ctx, "error revoking refresh token", "user_id", record.UserID, "record_id", record.ID, "error", err)
		return common.ErrorInternal
	}
	s.logger.Debug(ctx, "refresh token revoked", "user_id", record.UserID, "record_id", record.ID)
	return nil
}

// LogoutAll revokes every live refresh token of userID and returns how many
// were revoked. Access tokens already issued stay valid until they expire.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) (int64, error) {
	n, err := s.tokens.RevokeAllForUser(ctx, userID)
	if err != nil {
		s.logger.Error(ctx, "error revoking refresh tokens", "user_id", userID, "error", err)
		return 0, common.ErrorInternal
	}
	s.logger.Info(ctx, "user logged out everywhere", "user_id", userID, "revoked", n)
	return n, nil
}

// Authenticate checks an access token by signature and expiry alone.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string, now time.Time) (*auth.AccessClaims, error) {
	claims, err := s.codec.DecodeAccess(accessToken, now)
	if err != nil {
		s.logger.Debug(ctx, "access token rejected", "reason", err)
		return nil, common.ErrInvalidAccessToken
	}
	return claims, nil
}

// AccessTokenValidity is the lifetime of the access tokens this service mints.
func (s *AuthService) AccessTokenValidity() time.Duration {
	return s.codec.AccessValidity()
}

// ListUsers returns one page of identities, oldest first. A non-positive
// limit means DefaultListLimit; limits above MaxListLimit are capped.
func (s *AuthService) ListUsers(ctx context.Context, offset, limit int) ([]*models.User, error) {
	if offset < 0 {
		return nil, common.ErrInvalidPage
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	list, err := s.users.List(ctx, offset, limit)
	if err != nil {
		s.logger.Error(ctx, "error listing users", "error", err)
		return nil, common.ErrorInternal
	}
	return list, nil
}

// --- helpers below ---

// upgradePasswordHash re-hashes plaintext with the current work factor. A
// failure leaves the old digest in place and does not fail the login.
func (s *AuthService) upgradePasswordHash(ctx context.Context, userID, plaintext string) {
	digest, err := s.hasher.Hash(plaintext)
	if err != nil {
		s.logger.Warn(ctx, "password rehash failed", "user_id", userID, "error", err)
		return
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, digest); err != nil {
		s.logger.Warn(ctx, "password rehash not stored", "user_id", userID, "error", err)
		return
	}
	s.logger.Info(ctx, "password hash upgraded", "user_id", userID)
}

func (s *AuthService) reuseDetected(ctx context.Context, userID, recordID string) error {
	n, err := s.tokens.RevokeAllForUser(ctx, userID)
	if err != nil {
		s.logger.Error(ctx, "error revoking refresh tokens after reuse", "user_id", userID, "record_id", recordID, "error", err)
		return common.ErrorInternal
	}
	s.logger.Warn(ctx, "refresh token reuse detected", "user_id", userID, "record_id", recordID, "revoked", n)
	return common.ErrTokenReuseDetected
}

func (s *AuthService) issuePair(user *models.User, now time.Time) (*TokenPair, string, error) {
	access, err := s.codec.IssueAccess(user.ID, user.Role, now)
	if err != nil {
		return nil, "", err
	}
	refresh, err := s.codec.IssueRefresh(user.ID, now)
	if err != nil {
		return nil, "", err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: common.TokenTypeBearer}, refresh, nil
}

func (s *AuthService) refreshExpiry(now time.Time) time.Time {
	return s.codec.RefreshExpiry(now)
}
