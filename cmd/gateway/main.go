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

	"github.com/shikshaspace/gateway/internal/app"
	"github.com/shikshaspace/gateway/internal/auth"
	"github.com/shikshaspace/gateway/internal/guard"
	"github.com/shikshaspace/gateway/internal/identity"
	"github.com/shikshaspace/gateway/internal/oauth"
	"github.com/shikshaspace/gateway/internal/observability"
	"github.com/shikshaspace/gateway/internal/shared"
	"github.com/shikshaspace/gateway/internal/users"
	"github.com/shikshaspace/gateway/internal/view"
	"github.com/shikshaspace/gateway/jobs"
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

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "shiksha_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	identityClient := identity.NewClient(cfg.UserServiceURL, logger,
		identity.WithTimeout(cfg.UserServiceTimeout),
		identity.WithProbeTimeout(cfg.SyncProbeTimeout),
	)

	metrics := observability.NewMetrics()

	navigationGuard := guard.New(logger, cfg.PublicRoutes)
	navigationGuard.Metrics = metrics

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("create job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobInspector := asynq.NewInspector(redisOpts)
	jobHandler := jobs.NewHandler(jobInspector, logger)

	authHandler := auth.NewHandler(logger, identityClient, templates, sessionManager, csrfManager, metrics, cfg.GoogleClientID)
	oauthHandler := oauth.NewHandler(logger, identityClient, jobClient)
	usersHandler := users.NewHandler(logger, identityClient, templates, csrfManager)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Templates:      templates,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Guard:          navigationGuard,
		AuthHandler:    authHandler,
		OAuthHandler:   oauthHandler,
		UsersHandler:   usersHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
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
