package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "sentinelauth.v1.AuthService"

const (
	RegisterFullMethodName  = "/" + ServiceName + "/Register"
	LoginFullMethodName     = "/" + ServiceName + "/Login"
	RefreshFullMethodName   = "/" + ServiceName + "/Refresh"
	LogoutFullMethodName    = "/" + ServiceName + "/Logout"
	LogoutAllFullMethodName = "/" + ServiceName + "/LogoutAll"
	WhoAmIFullMethodName    = "/" + ServiceName + "/WhoAmI"
	ListUsersFullMethodName = "/" + ServiceName + "/ListUsers"
)

// AuthServer is the server API for AuthService.
type AuthServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	Login(context.Context, *LoginRequest) (*TokenPairResponse, error)
	Refresh(context.Context, *RefreshRequest) (*TokenPairResponse, error)
	Logout(context.Context, *LogoutRequest) (*LogoutResponse, error)
	LogoutAll(context.Context, *LogoutAllRequest) (*LogoutAllResponse, error)
	WhoAmI(context.Context, *WhoAmIRequest) (*WhoAmIResponse, error)
	ListUsers(context.Context, *ListUsersRequest) (*ListUsersResponse, error)
}

func RegisterAuthServer(s grpc.ServiceRegistrar, srv AuthServer) {
	s.RegisterService(&authServiceDesc, srv)
}

// unaryHandler adapts a typed AuthServer method to grpc.MethodHandler.
func unaryHandler[Req, Resp any](fullMethod string, call func(AuthServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AuthServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AuthServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var authServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: unaryHandler(RegisterFullMethodName, AuthServer.Register)},
		{MethodName: "Login", Handler: unaryHandler(LoginFullMethodName, AuthServer.Login)},
		{MethodName: "Refresh", Handler: unaryHandler(RefreshFullMethodName, AuthServer.Refresh)},
		{MethodName: "Logout", Handler: unaryHandler(LogoutFullMethodName, AuthServer.Logout)},
		{MethodName: "LogoutAll", Handler: unaryHandler(LogoutAllFullMethodName, AuthServer.LogoutAll)},
		{MethodName: "WhoAmI", Handler: unaryHandler(WhoAmIFullMethodName, AuthServer.WhoAmI)},
		{MethodName: "ListUsers", Handler: unaryHandler(ListUsersFullMethodName, AuthServer.ListUsers)},
	},
	Streams: []grpc.StreamDesc{},
}
