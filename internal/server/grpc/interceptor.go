package grpc

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/sentinelauth/internal/common"
	"github.com/dmitrijs2005/sentinelauth/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// protectedMethods need a valid access token. Everything else, including
// the health service, is public.
var protectedMethods = map[string]bool{
	LogoutAllFullMethodName: true,
	WhoAmIFullMethodName:    true,
	ListUsersFullMethodName: true,
}

// ClaimsFromContext returns the access claims the interceptor attached.
func ClaimsFromContext(ctx context.Context) (*auth.AccessClaims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.AccessClaims)
	return c, ok
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if protectedMethods[info.FullMethod] {

		accessToken := accessTokenFromMetadata(ctx)
		if len(accessToken) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}

		claims, err := s.auth.Authenticate(ctx, accessToken, s.now())
		if err != nil {
			return nil, unauthorized
		}

		ctx = context.WithValue(ctx, claimsKey, claims)

	}

	return handler(ctx, req)
}

// accessTokenFromMetadata reads "authorization: Bearer <token>", falling
// back to the bare access_token header.
func accessTokenFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}

	if values := md.Get(common.AuthorizationHeaderName); len(values) > 0 {
		scheme, token, found := strings.Cut(values[0], " ")
		if found && strings.EqualFold(scheme, common.TokenTypeBearer) {
			return strings.TrimSpace(token)
		}
		return ""
	}

	if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 {
		return values[0]
	}
	return ""
}
