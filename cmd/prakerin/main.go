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

	"github.com/prakerin/prakerin/internal/app"
	"github.com/prakerin/prakerin/internal/auth"
	"github.com/prakerin/prakerin/internal/dashboard"
	"github.com/prakerin/prakerin/internal/observability"
	"github.com/prakerin/prakerin/internal/platform/cache"
	"github.com/prakerin/prakerin/internal/platform/db"
	"github.com/prakerin/prakerin/internal/rbac"
	"github.com/prakerin/prakerin/internal/shared"
	"github.com/prakerin/prakerin/internal/users"
	"github.com/prakerin/prakerin/jobs"
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

	dbpool, err := db.New(ctx, cfg.Postgres("server"))
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionName, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	metrics := observability.NewMetrics()

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	rbacRepo := rbac.NewRepository(dbpool)
	builder := rbac.NewBuilder(
		rbac.NewIdentityLoader(auth.NewSessionPrincipals(authRepo), rbacRepo),
		rbac.NewPermissionResolver(rbacRepo),
	)
	rbacMiddleware := rbac.Middleware{Builder: builder, Logger: logger, Observer: metrics}

	redisOpts := cfg.Redis().Asynq()
	var activity rbac.ActivityRecorder = rbacRepo
	if cfg.ActivityAsync {
		jobClient := jobs.NewClient(redisOpts)
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		activity = jobClient
	}
	rbacService := rbac.NewService(rbac.ServiceConfig{
		Store:    rbacRepo,
		Builder:  builder,
		Activity: activity,
		Logger:   logger,
		Observer: metrics,
	})

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      authHandler,
		DashboardHandler: dashboard.NewHandler(logger, rbacMiddleware),
		RBACHandler:      rbac.NewHandler(logger, rbacService, rbacMiddleware),
		UsersHandler:     users.NewHandler(logger, users.NewService(users.NewRepository(dbpool), builder, logger), rbacMiddleware),
		JobHandler:       jobs.NewHandler(inspector, logger),
		RBACMiddleware:   rbacMiddleware,
		Metrics:          metrics,
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
