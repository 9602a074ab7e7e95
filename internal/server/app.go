// Package server initializes and runs the authentication server.
// It picks the storage backends, waits for them to come up, runs schema
// migrations, and serves the gRPC endpoint until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/sentinelauth/internal/cryptox"
	"github.com/dmitrijs2005/sentinelauth/internal/logging"
	"github.com/dmitrijs2005/sentinelauth/internal/server/auth"
	"github.com/dmitrijs2005/sentinelauth/internal/server/config"
	"github.com/dmitrijs2005/sentinelauth/internal/server/password"
	"github.com/dmitrijs2005/sentinelauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/sentinelauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/sentinelauth/internal/server/repositories/users"
	"github.com/dmitrijs2005/sentinelauth/internal/server/services"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/sentinelauth/internal/server/grpc"
)

// redisKeyPrefix namespaces every key the Redis token store writes.
const redisKeyPrefix = "sentinel"

type App struct {
	config  *config.Config
	logger  logging.Logger
	service *services.AuthService
	closers []func() error
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	if err := c.Validate(); err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.NewJSONLogger(os.Stdout, level)

	app := &App{config: c, logger: logger}

	ur, ts, err := app.openStores(ctx)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	service, err := newAuthService(c, ur, ts, logger)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.service = service

	return app, nil
}

func newAuthService(c *config.Config, ur users.Repository, ts refreshtokens.Store, logger logging.Logger) (*services.AuthService, error) {
	codec, err := auth.NewCodec([]byte(c.SecretKey), c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("token codec init error: %w", err)
	}

	params := password.DefaultParams
	params.Time = c.PasswordTime
	params.MemoryKiB = c.PasswordMemoryKiB
	params.Threads = c.PasswordThreads
	hasher, err := password.NewHasher(params)
	if err != nil {
		return nil, fmt.Errorf("password hasher init error: %w", err)
	}

	return services.NewAuthService(ur, ts, codec, hasher,
		cryptox.NewFingerprinter([]byte(c.FingerprintKey)),
		logger.With("module", "auth_service"))
}

// openStores builds the repository manager for the configured backend,
// waits for its dependencies and brings the schema up to date. Users live
// in PostgreSQL unless everything is in memory.
func (app *App) openStores(ctx context.Context) (users.Repository, refreshtokens.Store, error) {
	rm, err := app.newRepositoryManager(ctx)
	if err != nil {
		return nil, nil, err
	}

	if err := rm.RunMigrations(ctx); err != nil {
		return nil, nil, fmt.Errorf("migrations error: %w", err)
	}
	version, err := rm.SchemaVersion(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("schema version error: %w", err)
	}
	app.logger.Info(ctx, "Storage ready", "token_store", app.config.TokenStore, "schema_version", version)

	return rm.Users(), rm.RefreshTokens(), nil
}

func (app *App) newRepositoryManager(ctx context.Context) (repomanager.RepositoryManager, error) {
	c := app.config

	if c.TokenStore == config.StoreMemory {
		app.logger.Warn(ctx, "using in-memory stores, state is lost on restart")
		return repomanager.NewInMemoryRepositoryManager(), nil
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.closers = append(app.closers, db.Close)

	if err := waitReady(ctx, app.logger, "postgres", db.PingContext); err != nil {
		return nil, err
	}

	if c.TokenStore != config.StoreRedis {
		return repomanager.NewPostgresRepositoryManager(db), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	})
	app.closers = append(app.closers, client.Close)

	if err := waitReady(ctx, app.logger, "redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}); err != nil {
		return nil, err
	}

	store := refreshtokens.NewRedisStore(client, redisKeyPrefix, nil)
	return repomanager.NewPostgresRepositoryManager(db, repomanager.WithRefreshTokenStore(store)), nil
}

// Close releases backend connections in reverse order of opening.
func (app *App) Close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.service)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// closes the backends.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "token_store", app.config.TokenStore)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.Close(); err != nil {
		app.logger.Error(ctx, "error closing backends", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
