package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	_ "github.com/orgstack/tenant-auth/docs" // swagger docs

	"github.com/orgstack/tenant-auth/internal/api"
	"github.com/orgstack/tenant-auth/internal/api/handler"
	"github.com/orgstack/tenant-auth/internal/core/credential"
	"github.com/orgstack/tenant-auth/internal/core/ports"
	"github.com/orgstack/tenant-auth/internal/core/service"
	"github.com/orgstack/tenant-auth/internal/core/token"
	"github.com/orgstack/tenant-auth/internal/infrastructure/db/memory"
	"github.com/orgstack/tenant-auth/internal/infrastructure/db/mongo"
	"github.com/orgstack/tenant-auth/internal/infrastructure/db/redis"
	"github.com/orgstack/tenant-auth/internal/infrastructure/queue"
	"github.com/orgstack/tenant-auth/internal/pkg/config"
	"github.com/orgstack/tenant-auth/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// @title Tenant Auth API
// @version 1.0
// @description Multi-tenant registration, login and session token service.
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Env:     cfg.Env,
		Service: "tenant-auth",
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	secret, fallback, err := cfg.Secret()
	if err != nil {
		return err
	}
	if fallback {
		log.Warn().Msg("JWT_SECRET not set; signing tokens with the development secret")
	}

	codec, err := token.NewCodec(token.Config{
		Secret:     secret,
		AccessTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
	}, ports.SystemClock{})
	if err != nil {
		return err
	}

	checks := map[string]handler.DependencyCheck{}
	var (
		users ports.UserRepository
		guard service.RegistrationGuard
		audit handler.AuditRecorder
	)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	switch cfg.UserStore {
	case "memory":
		log.Warn().Msg("using in-memory user store; accounts are lost on restart")
		users = memory.NewUserRepository()
	case "mongo":
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return err
		}
		defer disconnectMongo(client, log)

		if err := mongo.EnsureUserIndexes(ctx, db); err != nil {
			return err
		}
		users = mongo.NewUserRepository(db)
		checks["mongo"] = mongo.Check(client)

		dispatcher := queue.NewDispatcher(cfg.Auth.AuditWorkers, mongo.NewAuditRepository(db),
			logger.Component("audit"))
		dispatcher.Start(workerCtx)
		// Workers flush before the client disconnects.
		defer func() {
			stopWorkers()
			dispatcher.Wait()
		}()
		audit = dispatcher
		log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongo")
	default:
		return fmt.Errorf("unknown USER_STORE %q", cfg.UserStore)
	}

	if cfg.Redis.Addr != "" {
		rdb, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable; registration guard disabled")
		} else {
			defer rdb.Close()
			guard = redis.NewRegistrationGuard(rdb)
			checks["redis"] = redis.Check(rdb)
		}
	}

	sessions := service.NewSessionService(
		users,
		credential.NewHasher(cfg.Auth.BcryptCost),
		codec,
		guard,
		ports.SystemClock{},
	)

	e := api.NewRouter(api.Dependencies{
		Sessions: sessions,
		Audit:    audit,
		Checks:   checks,
		Log:      log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func disconnectMongo(client *mongodriver.Client, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		log.Error().Err(err).Msg("mongo disconnect")
	}
}
