package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/sentinelauth/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var t0 = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func newInterceptorServer(t *testing.T) (*GRPCServer, *auth.Codec) {
	t.Helper()
	svc, codec := newTestAuthService(t)
	s := NewGRPCServer("", nopLogger{}, svc)
	s.now = func() time.Time { return t0 }
	return s, codec
}

func issueAccess(t *testing.T, codec *auth.Codec, at time.Time) string {
	t.Helper()
	token, err := codec.IssueAccess("u1", "admin", at)
	if err != nil {
		t.Fatalf("IssueAccess error: %v", err)
	}
	return token
}

func TestInterceptor_PublicMethodWithoutToken(t *testing.T) {
	s, _ := newInterceptorServer(t)

	info := &grpc.UnaryServerInfo{FullMethod: LoginFullMethodName}
	handlerCalled := false
	h := func(ctx context.Context, req interface{}) (interface{}, error) {
		handlerCalled = true
		if _, ok := ClaimsFromContext(ctx); ok {
			t.Fatal("public method must not carry claims")
		}
		return "ok", nil
	}

	resp, err := s.accessTokenInterceptor(context.Background(), nil, info, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handlerCalled || resp != "ok" {
		t.Fatalf("handler not called properly: called=%v resp=%v", handlerCalled, resp)
	}
}

func TestInterceptor_ProtectedMethod(t *testing.T) {
	s, codec := newInterceptorServer(t)
	token := issueAccess(t, codec, t0)
	expired := issueAccess(t, codec, t0.Add(-time.Hour))

	tests := []struct {
		name     string
		md       metadata.MD
		wantCode codes.Code
		wantMsg  string
	}{
		{name: "bearer", md: metadata.Pairs("authorization", "Bearer "+token), wantCode: codes.OK},
		{name: "lowercase scheme", md: metadata.Pairs("authorization", "bearer "+token), wantCode: codes.OK},
		{name: "access_token header", md: metadata.Pairs("access_token", token), wantCode: codes.OK},
		{name: "no metadata", md: nil, wantCode: codes.Unauthenticated, wantMsg: "missing token"},
		{name: "basic scheme", md: metadata.Pairs("authorization", "Basic "+token), wantCode: codes.Unauthenticated, wantMsg: "missing token"},
		{name: "garbage", md: metadata.Pairs("authorization", "Bearer nope"), wantCode: codes.Unauthenticated, wantMsg: "unauthorized"},
		{name: "expired", md: metadata.Pairs("access_token", expired), wantCode: codes.Unauthenticated, wantMsg: "unauthorized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.md != nil {
				ctx = metadata.NewIncomingContext(ctx, tt.md)
			}
			info := &grpc.UnaryServerInfo{FullMethod: WhoAmIFullMethodName}
			h := func(ctx context.Context, req interface{}) (interface{}, error) {
				c, ok := ClaimsFromContext(ctx)
				if !ok || c.UserID != "u1" || c.Role != "admin" {
					t.Fatalf("unexpected claims: %+v", c)
				}
				return "ok", nil
			}

			_, err := s.accessTokenInterceptor(ctx, nil, info, h)
			st, _ := status.FromError(err)
			if st.Code() != tt.wantCode {
				t.Fatalf("code = %v, want %v (err %v)", st.Code(), tt.wantCode, err)
			}
			if tt.wantMsg != "" && st.Message() != tt.wantMsg {
				t.Fatalf("message = %q, want %q", st.Message(), tt.wantMsg)
			}
		})
	}
}
