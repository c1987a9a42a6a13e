// Package main runs the paired-recording HTTP server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pairtalk/backend/config"
	"github.com/pairtalk/backend/internal/auth"
	"github.com/pairtalk/backend/internal/folders"
	"github.com/pairtalk/backend/internal/middleware"
	"github.com/pairtalk/backend/internal/notify"
	"github.com/pairtalk/backend/internal/pipeline"
	"github.com/pairtalk/backend/internal/realtime"
	"github.com/pairtalk/backend/internal/recordings"
	"github.com/pairtalk/backend/internal/rooms"
	"github.com/pairtalk/backend/internal/sessions"
	"github.com/pairtalk/backend/internal/tasktypes"
	"github.com/pairtalk/backend/internal/transcode"
	"github.com/pairtalk/backend/internal/worker"
	"github.com/pairtalk/backend/pkg/database"
	"github.com/pairtalk/backend/pkg/queue"
	"github.com/pairtalk/backend/pkg/redis"
	"github.com/pairtalk/backend/pkg/response"
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

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			RecordingsBucket:     cfg.AWS.RecordingsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	catalog := tasktypes.Default()

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Task sessions
	sessionRepo := sessions.NewRepository(pool)
	roomAllocator := rooms.NewAllocator(logger)
	sessionSvc := sessions.NewService(sessionRepo, auth.NewDirectory(authRepo), catalog, roomAllocator, logger)
	sessionSvc.SetPublisher(hub)
	sessionHandler := sessions.NewHandler(sessionSvc, logger)
	authHandler.SetPartnerHooks(sessionSvc)
	roomHandler := rooms.NewHandler(sessionSvc, cfg.Zego, logger)

	// Invitation emails
	notifyRepo := notify.NewRepository(pool)
	mailer := notify.NewMailer(notifyRepo, jobQueue, cfg.Email, logger)
	sessionSvc.SetInviteSender(mailer)
	notifyHandler := notify.NewHandler(mailer, logger)

	// Recordings and processing pipeline
	recordingRepo := recordings.NewRepository(pool)
	ffmpeg := transcode.NewFFmpeg(cfg.Transcode.FFmpegPath, cfg.Transcode.ScratchDir, logger)
	folderAllocator := folders.NewPostgresAllocator(pool)
	processor := pipeline.NewProcessor(recordingRepo, s3Client, ffmpeg, folderAllocator, logger)
	recordingHandler := recordings.NewHandler(recordingRepo, sessionSvc, s3Client, jobQueue, processor, logger)

	jwtValidate := func(token string) (userID uuid.UUID, role string, err error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return uuid.Nil, "", err
		}
		return claims.UserID, claims.Role, nil
	}
	isParty := func(sessionID, userID uuid.UUID, role string) bool {
		if role == "admin" {
			return true
		}
		session, err := sessionSvc.Get(context.Background(), sessionID)
		if err != nil || session == nil {
			return false
		}
		return session.IsParty(userID)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/auth/me", authHandler.Me)
		api.GET("/task-types", catalog.ListHandler)

		// Task sessions
		api.POST("/sessions", sessionHandler.Create)
		api.GET("/sessions", sessionHandler.List)
		api.GET("/sessions/:id", sessionHandler.GetByID)
		api.POST("/sessions/:id/invite", sessionHandler.Invite)
		api.POST("/sessions/:id/room", sessionHandler.CreateRoom)
		api.POST("/sessions/:id/complete", sessionHandler.Complete)
		api.GET("/sessions/:id/room-token", roomHandler.GetToken)

		// Recordings
		api.POST("/sessions/:id/recordings/upload-url", recordingHandler.RequestUploadURL)
		api.GET("/sessions/:id/recordings", recordingHandler.ListBySession)
		api.POST("/recordings/:id/uploaded", recordingHandler.MarkUploaded)
		api.GET("/recordings/:id/download-url", recordingHandler.GenerateDownloadURL)

		// Admin
		admin := api.Group("/admin", middleware.RequireRole("admin"))
		{
			admin.GET("/users", authHandler.ListUsers)
			admin.PATCH("/users/:id/approve", authHandler.ApproveUser)
			admin.GET("/sessions/pending-review", sessionHandler.ListPendingReview)
			admin.PATCH("/sessions/:id/approve", sessionHandler.AdminApprove)
			admin.PATCH("/sessions/:id/reject", sessionHandler.AdminReject)
			admin.PATCH("/sessions/:id/reviewer-status", sessionHandler.SetReviewerStatus)
			admin.PATCH("/sessions/:id/paid", sessionHandler.SetPaid)
			admin.POST("/recordings/:id/process", recordingHandler.Process)
			admin.POST("/emails/:id/resend", notifyHandler.Resend)
		}
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtValidate, isParty))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// In-process job worker (recording processing, invitation emails)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if s3Client != nil {
		jobWorker := worker.New(processor, mailer, jobQueue, logger)
		go jobWorker.Run(workerCtx)
		logger.Info("job worker started")
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
