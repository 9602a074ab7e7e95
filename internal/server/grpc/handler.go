package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/sentinelauth/internal/common"
	"github.com/dmitrijs2005/sentinelauth/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// unauthorized is the single message for every rejected credential, so
// callers cannot tell reuse detection from an ordinary invalid token.
var unauthorized = status.Error(codes.Unauthenticated, "unauthorized")

func (s *GRPCServer) Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {

	user, err := s.auth.Register(ctx, req.Username, req.Password, common.RoleUser)

	if err != nil {
		switch {
		case errors.Is(err, common.ErrAlreadyExists):
			return nil, status.Error(codes.AlreadyExists, "username already taken")
		case errors.Is(err, common.ErrWeakPassword), errors.Is(err, common.ErrInvalidUsername):
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Error(codes.Internal, "internal error")
	}

	return &RegisterResponse{UserID: user.ID}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *LoginRequest) (*TokenPairResponse, error) {

	tokens, err := s.auth.Login(ctx, req.Username, req.Password, s.now())

	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			return nil, unauthorized
		}
		return nil, status.Error(codes.Internal, "internal error")
	}

	return s.tokenPairResponse(tokens), nil
}

func (s *GRPCServer) Refresh(ctx context.Context, req *RefreshRequest) (*TokenPairResponse, error) {

	tokens, err := s.auth.Refresh(ctx, req.RefreshToken, s.now())

	if err != nil {
		if errors.Is(err, common.ErrInvalidRefreshToken) || errors.Is(err, common.ErrTokenReuseDetected) {
			return nil, unauthorized
		}
		return nil, status.Error(codes.Internal, "internal error")
	}

	return s.tokenPairResponse(tokens), nil
}

func (s *GRPCServer) Logout(ctx context.Context, req *LogoutRequest) (*LogoutResponse, error) {

	if err := s.auth.Logout(ctx, req.RefreshToken, s.now()); err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}

	return &LogoutResponse{}, nil
}

func (s *GRPCServer) LogoutAll(ctx context.Context, _ *LogoutAllRequest) (*LogoutAllResponse, error) {

	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return nil, unauthorized
	}

	n, err := s.auth.LogoutAll(ctx, claims.UserID)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}

	return &LogoutAllResponse{Revoked: n}, nil
}

func (s *GRPCServer) WhoAmI(ctx context.Context, _ *WhoAmIRequest) (*WhoAmIResponse, error) {

	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return nil, unauthorized
	}

	return &WhoAmIResponse{UserID: claims.UserID, Role: claims.Role}, nil
}

// ListUsers is restricted to access tokens carrying the admin role.
func (s *GRPCServer) ListUsers(ctx context.Context, req *ListUsersRequest) (*ListUsersResponse, error) {

	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return nil, unauthorized
	}
	if claims.Role != common.RoleAdmin {
		return nil, status.Error(codes.PermissionDenied, "admin role required")
	}

	list, err := s.auth.ListUsers(ctx, req.Offset, req.Limit)
	if err != nil {
		if errors.Is(err, common.ErrInvalidPage) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Error(codes.Internal, "internal error")
	}

	resp := &ListUsersResponse{Users: make([]UserInfo, 0, len(list))}
	for _, u := range list {
		resp.Users = append(resp.Users, UserInfo{
			UserID:    u.ID,
			Username:  u.UserName,
			Role:      u.Role,
			IsActive:  u.IsActive,
			CreatedAt: u.CreatedAt,
		})
	}
	return resp, nil
}

func (s *GRPCServer) tokenPairResponse(tokens *services.TokenPair) *TokenPairResponse {
	return &TokenPairResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    tokens.TokenType,
		ExpiresIn:    int64(s.auth.AccessTokenValidity().Seconds()),
	}
}
