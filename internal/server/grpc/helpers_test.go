package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/sentinelauth/internal/cryptox"
	"github.com/dmitrijs2005/sentinelauth/internal/logging"
	"github.com/dmitrijs2005/sentinelauth/internal/server/auth"
	"github.com/dmitrijs2005/sentinelauth/internal/server/password"
	"github.com/dmitrijs2005/sentinelauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/sentinelauth/internal/server/repositories/users"
	"github.com/dmitrijs2005/sentinelauth/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

const accessTTL = 15 * time.Minute

func newTestAuthService(t *testing.T) (*services.AuthService, *auth.Codec) {
	t.Helper()

	codec, err := auth.NewCodec([]byte("secret"), accessTTL, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("NewCodec error: %v", err)
	}
	hasher, err := password.NewHasher(password.Params{Time: 1, MemoryKiB: 1024, Threads: 1, SaltLength: 16, KeyLength: 32})
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}
	svc, err := services.NewAuthService(users.NewMemoryRepository(), refreshtokens.NewMemoryStore(nil), codec, hasher,
		cryptox.NewFingerprinter([]byte("fingerprint")), nopLogger{})
	if err != nil {
		t.Fatalf("NewAuthService error: %v", err)
	}
	return svc, codec
}

// startBufServer serves s on an in-memory listener and returns a client
// connection to it. The server stops when the test ends.
func startBufServer(t *testing.T, s *GRPCServer) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient error: %v", err)
	}

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Serve returned error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Errorf("server did not stop")
		}
	})
	return conn
}
