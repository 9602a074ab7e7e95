package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/dmitrijs2005/sentinelauth/internal/logging"
	"github.com/dmitrijs2005/sentinelauth/internal/server/auth"
	"github.com/dmitrijs2005/sentinelauth/internal/server/models"
	"github.com/dmitrijs2005/sentinelauth/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// Authenticator is the part of services.AuthService the transport calls.
type Authenticator interface {
	Register(ctx context.Context, username, password, role string) (*models.User, error)
	Login(ctx context.Context, username, password string, now time.Time) (*services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string, now time.Time) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string, now time.Time) error
	LogoutAll(ctx context.Context, userID string) (int64, error)
	Authenticate(ctx context.Context, accessToken string, now time.Time) (*auth.AccessClaims, error)
	ListUsers(ctx context.Context, offset, limit int) ([]*models.User, error)
	AccessTokenValidity() time.Duration
}

type GRPCServer struct {
	address string
	auth    Authenticator
	logger  logging.Logger
	now     func() time.Time
}

func NewGRPCServer(a string, l logging.Logger, as Authenticator) *GRPCServer {
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		auth:    as,
		now:     time.Now,
	}
}

func (s *GRPCServer) newServer() (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))

	RegisterAuthServer(srv, s)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return srv, healthServer
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.address, err)
	}

	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is done, then marks health NOT_SERVING and
// drains in-flight calls.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv, healthServer := s.newServer()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info(ctx, "Stopping gRPC server...")
		healthServer.Shutdown()
		srv.GracefulStop()
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	case err := <-serveErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}
