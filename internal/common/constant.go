package common

// AccessTokenHeaderName is the gRPC metadata key that may carry a raw access
// token. AuthorizationHeaderName with a "Bearer " prefix is accepted as well.
const (
	AccessTokenHeaderName   = "access_token"
	AuthorizationHeaderName = "authorization"
)

// TokenTypeBearer is reported to clients alongside every token pair.
const TokenTypeBearer = "bearer"

// Role names understood out of the box. Any other string may be stored and
// is carried verbatim in access tokens.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)
