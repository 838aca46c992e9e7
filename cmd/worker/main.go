// Package main runs the background worker (email delivery, outbox draining).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benariet/SemScan-Project-sub001/config"
	"github.com/benariet/SemScan-Project-sub001/internal/emaillogs"
	"github.com/benariet/SemScan-Project-sub001/internal/notify"
	"github.com/benariet/SemScan-Project-sub001/pkg/database"
	"github.com/benariet/SemScan-Project-sub001/pkg/queue"
	"github.com/benariet/SemScan-Project-sub001/pkg/redis"
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

	var sender notify.Sender
	if cfg.Email.SMTPHost != "" {
		sender = notify.NewSMTPSender(cfg.Email)
	} else {
		logger.Warn("SMTP_HOST not set, emails will be logged only")
		sender = notify.NewLogSender(logger)
	}

	emailLogsRepo := emaillogs.NewRepository(pool)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := notify.NewEmailProcessor(sender, emailLogsRepo, jobQueue, logger)
	drainer := notify.NewOutboxDrainer(pool, jobQueue, 5*time.Second, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(workerCtx)
	go drainer.Run(workerCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
