package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/shikshaspace/gateway/internal/app"
	"github.com/shikshaspace/gateway/internal/identity"
	"github.com/shikshaspace/gateway/internal/oauth"
	"github.com/shikshaspace/gateway/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	identityClient := identity.NewClient(cfg.UserServiceURL, logger,
		identity.WithTimeout(cfg.UserServiceTimeout),
		identity.WithProbeTimeout(cfg.SyncProbeTimeout),
	)
	syncer := oauth.NewSyncer(identityClient, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Syncer:    syncer,
	})
	if err != nil {
		logger.Error("create worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.String("redis", cfg.RedisAddr))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
