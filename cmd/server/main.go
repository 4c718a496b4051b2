package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/bookandsign/auth-system/internal/api"
	"github.com/bookandsign/auth-system/internal/api/handler"
	"github.com/bookandsign/auth-system/internal/core/ports"
	"github.com/bookandsign/auth-system/internal/core/service"
	"github.com/bookandsign/auth-system/internal/infrastructure/db/mongo"
	"github.com/bookandsign/auth-system/internal/infrastructure/db/postgres"
	"github.com/bookandsign/auth-system/internal/infrastructure/db/redis"
	"github.com/bookandsign/auth-system/internal/pkg/config"
	"github.com/bookandsign/auth-system/pkg/logger"
)

// @title                       Auth System API
// @version                     1.0
// @description                 Multi-tenant signup, login, token rotation and user administration.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	cfg := config.MustLoad()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "auth-system",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.close()

	var throttle ports.LoginThrottle
	if cfg.Redis.Enabled {
		rdb, err := redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			// Login keeps working without the throttle.
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, login throttle disabled")
		} else {
			defer rdb.Close()
			throttle = redis.NewLoginThrottle(rdb, cfg.Auth.MaxLoginAttempts, cfg.Auth.LoginAttemptWindow)
			store.checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
			log.Info().Str("addr", cfg.Redis.Addr).Msg("login throttle enabled")
		}
	}

	hasher, err := service.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}
	tokens, err := service.NewTokenService(store.tokens, service.TokenConfig{
		Secret:     cfg.Auth.JWTSecret,
		Issuer:     cfg.Auth.JWTIssuer,
		AccessTTL:  cfg.Auth.AccessTTL(),
		RefreshTTL: cfg.Auth.RefreshTTL(),
	}, log)
	if err != nil {
		return fmt.Errorf("token service: %w", err)
	}

	authService := service.NewAuthService(store.users, hasher, tokens, tokens, throttle, service.AuthConfig{
		DefaultTenantID:   cfg.Auth.DefaultTenantID,
		HideUserExistence: cfg.Auth.HideUserExistence,
	}, log)
	userService := service.NewUserService(store.users, hasher, tokens, log)

	e := api.NewRouter(api.Deps{
		Auth:     authService,
		Users:    userService,
		Verifier: tokens,
		Checks:   store.checks,
		Log:      log,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("storage", cfg.StorageDriver).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type storage struct {
	users  ports.UserRepository
	tokens ports.TokenStore
	checks map[string]handler.Check
	close  func()
}

// openStorage connects the configured driver and prepares its schema.
func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	switch cfg.StorageDriver {
	case config.DriverMongo:
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		disconnect := func() { _ = client.Disconnect(context.Background()) }
		users := mongo.NewUserRepository(db)
		tokens := mongo.NewTokenRepository(db)
		if err := users.EnsureIndexes(ctx); err != nil {
			disconnect()
			return nil, err
		}
		if err := tokens.EnsureIndexes(ctx); err != nil {
			disconnect()
			return nil, err
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("mongo storage ready")
		return &storage{
			users:  users,
			tokens: tokens,
			checks: map[string]handler.Check{
				"mongodb": func(ctx context.Context) error { return client.Ping(ctx, nil) },
			},
			close: disconnect,
		}, nil

	default:
		pool, err := postgres.Connect(ctx, postgres.Config{URL: cfg.Postgres.URL, MaxConns: cfg.Postgres.MaxConns})
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info().Msg("postgres storage ready")
		return &storage{
			users:  postgres.NewUserRepository(pool),
			tokens: postgres.NewTokenRepository(pool),
			checks: map[string]handler.Check{
				"postgres": pool.Ping,
			},
			close: pool.Close,
		}, nil
	}
}
