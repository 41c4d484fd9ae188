package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/identity-service/internal/config"
	"github.com/iliyamo/identity-service/internal/database"
	"github.com/iliyamo/identity-service/internal/handler"
	"github.com/iliyamo/identity-service/internal/logger"
	"github.com/iliyamo/identity-service/internal/middleware"
	"github.com/iliyamo/identity-service/internal/queue"
	"github.com/iliyamo/identity-service/internal/repository"
	"github.com/iliyamo/identity-service/internal/router"
	"github.com/iliyamo/identity-service/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser,
		Pass: cfg.DBPass,
		Host: cfg.DBHost,
		Port: cfg.DBPort,
		Name: cfg.DBName,
	})
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		zl.Info("migrations applied")
	}

	rdb := config.NewRedisClient(ctx, cfg.Redis)
	if rdb == nil {
		zl.Warn("redis unreachable, response cache disabled")
	} else {
		defer func() { _ = rdb.Close() }()
	}

	var events service.EventPublisher = queue.Discard{}
	if cfg.AuthEventsEnabled {
		pub := queue.NewPublisher(cfg.RabbitURL, zl.Named("events"))
		go pub.Run(ctx)
		events = pub
	}
	if cfg.AuditConsumerEnabled {
		consumer := queue.NewAuditConsumer(cfg.RabbitURL, cfg.AuditLogDir, zl.Named("audit"))
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zl.Warn("audit consumer stopped", zap.Error(err))
			}
		}()
	}

	store := repository.NewStore(db, cfg.BcryptCost)
	tokens := service.NewTokenService(service.TokenConfig{
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.RefreshTokenSecret,
		AccessTTL:     cfg.AccessTTL(),
		RefreshTTL:    cfg.RefreshTTL(),
	})
	authz := service.NewAuthorizer(tokens, store.Users)

	authSvc := service.NewAuthService(store.Stores(), store, tokens, events, zl.Named("auth"), service.AuthOptions{
		MaxFailedLogins:      cfg.LoginMaxFailedAttempts,
		LockoutDuration:      cfg.LoginLockout,
		RegisterFailureDelay: cfg.RegisterFailureDelay,
	})
	userSvc := service.NewUserService(authz, store.Users, store.Profiles, store.Tokens, events, zl.Named("users"))
	roleSvc := service.NewRoleService(authz, store.Roles, store.Permissions, store.Users)
	permSvc := service.NewPermissionService(authz, store.Permissions)
	profileSvc := service.NewProfileService(authz, store.Profiles)

	go service.RunTokenCleanup(ctx, store.Tokens, cfg.TokenCleanupInterval, zl.Named("cleanup"))

	health := handler.NewHealthHandler().Add("database", db.PingContext)
	if rdb != nil {
		health.Add("redis", redisPing(rdb))
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.ErrorHandler(zl)
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(zl))

	router.Register(e, router.Handlers{
		Health:      health,
		Auth:        handler.NewAuthHandler(authSvc),
		Users:       handler.NewUserHandler(userSvc),
		Roles:       handler.NewRoleHandler(roleSvc),
		Permissions: handler.NewPermissionHandler(permSvc),
		Profiles:    handler.NewProfileHandler(profileSvc),
	}, tokens, router.Cache{
		Config: cfg.Cache,
		Redis:  rdb,
		Log:    zl.Named("cache"),
	})

	errCh := make(chan error, 1)
	go func() {
		zl.Info("listening", zap.String("addr", cfg.Addr()), zap.String("env", cfg.Env))
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func redisPing(rdb *redis.Client) handler.HealthCheck {
	return func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
}
