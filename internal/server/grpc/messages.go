package grpc

import "time"

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	UserID string `json:"user_id"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutResponse struct{}

type LogoutAllRequest struct{}

type LogoutAllResponse struct {
	Revoked int64 `json:"revoked"`
}

type WhoAmIRequest struct{}

type WhoAmIResponse struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// ListUsersRequest pages through identities. Limit 0 means the server default.
type ListUsersRequest struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

type UserInfo struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type ListUsersResponse struct {
	Users []UserInfo `json:"users"`
}

// TokenPairResponse is returned by Login and Refresh.
type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}
