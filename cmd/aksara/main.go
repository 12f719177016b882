package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/aksara-hq/aksara-admin/internal/app"
	"github.com/aksara-hq/aksara-admin/internal/audit"
	"github.com/aksara-hq/aksara-admin/internal/auth"
	"github.com/aksara-hq/aksara-admin/internal/features"
	"github.com/aksara-hq/aksara-admin/internal/observability"
	"github.com/aksara-hq/aksara-admin/internal/permissions"
	"github.com/aksara-hq/aksara-admin/internal/platform/db"
	"github.com/aksara-hq/aksara-admin/internal/rbac"
	"github.com/aksara-hq/aksara-admin/internal/roles"
	"github.com/aksara-hq/aksara-admin/internal/users"
	"github.com/aksara-hq/aksara-admin/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	engineMetrics := observability.NewEngineMetrics(metrics.Registerer())

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo)

	accessStore := rbac.NewRepository(dbpool)
	accessCache := rbac.NewAccessCache(redisClient, cfg.AccessCacheTTL)
	auditSink := audit.NewRecorder(dbpool)
	engine := rbac.NewService(logger, accessStore, auditSink, usersService, accessCache, engineMetrics, rbac.ServiceConfig{
		LockWait: cfg.EngineLockWait,
	})
	if err := engine.Load(ctx); err != nil {
		logger.Error("load access state", slog.Any("error", err))
		os.Exit(1)
	}
	accessMiddleware := rbac.Middleware{Service: engine, Logger: logger}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, redisClient)
	authService := auth.NewService(usersService, tokens)
	authMiddleware := auth.Middleware{Service: authService, Logger: logger}
	authHandler := auth.NewHandler(logger, authService, authMiddleware)

	auditRepo := audit.NewRepository(dbpool)
	auditService := audit.NewService(auditRepo)
	auditHandler := audit.NewHandler(logger, auditService, accessMiddleware)

	rolesHandler := roles.NewHandler(logger, engine, accessMiddleware)
	usersHandler := users.NewHandler(logger, usersService, accessMiddleware)
	featuresHandler := features.NewHandler(logger, engine, accessMiddleware)
	permissionsHandler := permissions.NewHandler(logger, engine, accessMiddleware)
	accessHandler := rbac.NewHandler(logger, engine, accessMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	// Pre-warm access lists so first requests after a deploy hit the cache.
	if _, err := jobClient.EnqueueAccessWarmup(ctx, jobs.AccessWarmupPayload{}); err != nil {
		logger.Warn("enqueue startup warmup", slog.Any("error", err))
	}

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AuthHandler:        authHandler,
		AuthMiddleware:     authMiddleware,
		RolesHandler:       rolesHandler,
		UsersHandler:       usersHandler,
		FeaturesHandler:    featuresHandler,
		PermissionsHandler: permissionsHandler,
		AccessHandler:      accessHandler,
		AuditHandler:       auditHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
