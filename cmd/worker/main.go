// Package main runs the background job worker (recording processing, invitation emails).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pairtalk/backend/config"
	"github.com/pairtalk/backend/internal/folders"
	"github.com/pairtalk/backend/internal/notify"
	"github.com/pairtalk/backend/internal/pipeline"
	"github.com/pairtalk/backend/internal/recordings"
	"github.com/pairtalk/backend/internal/transcode"
	"github.com/pairtalk/backend/internal/worker"
	"github.com/pairtalk/backend/pkg/database"
	"github.com/pairtalk/backend/pkg/queue"
	"github.com/pairtalk/backend/pkg/redis"
	"github.com/pairtalk/backend/pkg/storage"
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

	s3Cfg := storage.S3Config{
		Region:               cfg.AWS.Region,
		AccessKeyID:          cfg.AWS.AccessKeyID,
		SecretAccessKey:      cfg.AWS.SecretAccessKey,
		RecordingsBucket:     cfg.AWS.RecordingsBucket,
		PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
	}
	s3Client, err := storage.NewS3(ctx, s3Cfg, logger)
	if err != nil {
		logger.Fatal("s3", zap.Error(err))
	}

	recordingRepo := recordings.NewRepository(pool)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	ffmpeg := transcode.NewFFmpeg(cfg.Transcode.FFmpegPath, cfg.Transcode.ScratchDir, logger)
	folderAllocator := folders.NewPostgresAllocator(pool)
	processor := pipeline.NewProcessor(recordingRepo, s3Client, ffmpeg, folderAllocator, logger)

	notifyRepo := notify.NewRepository(pool)
	mailer := notify.NewMailer(notifyRepo, jobQueue, cfg.Email, logger)

	jobWorker := worker.New(processor, mailer, jobQueue, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go jobWorker.Run(workerCtx)
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
