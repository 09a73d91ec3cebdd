// Package main runs the background worker: notification delivery and the
// scheduled maintenance jobs.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hackhub/backend/config"
	"github.com/hackhub/backend/internal/invitations"
	"github.com/hackhub/backend/internal/jobs"
	"github.com/hackhub/backend/internal/notifications"
	"github.com/hackhub/backend/pkg/database"
	"github.com/hackhub/backend/pkg/queue"
	"github.com/hackhub/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jobQueue := queue.NewQueue(rdb.Client, logger)
	dispatcher := notifications.NewDispatcher(notifications.NewRepository(pool),
		notifications.NewSMTPMailer(cfg.Email, logger), jobQueue, logger)
	invitationService := invitations.NewService(invitations.NewRepository(pool),
		time.Duration(cfg.Invitation.TTLHours)*time.Hour, cfg.Server.AppURL, logger)

	scheduler := jobs.New(logger)
	if err := scheduler.Add("notification_requeue", cfg.Worker.RequeueCron, time.Minute, func(ctx context.Context) error {
		dispatcher.Requeue(ctx)
		return nil
	}); err != nil {
		logger.Fatal("schedule notification requeue", zap.Error(err))
	}
	if err := scheduler.Add("invitation_sweep", cfg.Invitation.SweepCron, time.Minute, invitationService.Sweep); err != nil {
		logger.Fatal("schedule invitation sweep", zap.Error(err))
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler.Start()
	go dispatcher.Run(workerCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	stopCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	scheduler.Stop(stopCtx)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
