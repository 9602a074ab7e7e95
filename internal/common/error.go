// Package common defines the sentinel errors and constants shared by the
// SentinelAuth server layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound    = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrTokenRevoked  = errors.New("refresh token already revoked")

	// Service-level errors. These are the only values the service returns
	// to its callers.
	ErrorInternal          = errors.New("internal error")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrTokenReuseDetected  = errors.New("refresh token reuse detected")
	ErrInvalidAccessToken  = errors.New("invalid access token")
	ErrWeakPassword        = errors.New("password too short")
	ErrInvalidUsername     = errors.New("invalid username")
	ErrInvalidPage         = errors.New("invalid page")

	// Codec errors.
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenForged    = errors.New("token signature invalid")
	ErrTokenExpired   = errors.New("token expired")
	ErrWrongTokenKind = errors.New("wrong token kind")

	ErrInvalidConfig = errors.New("invalid config")
)
