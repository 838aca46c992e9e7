// Package main runs the seminar slot-registration HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benariet/SemScan-Project-sub001/config"
	"github.com/benariet/SemScan-Project-sub001/internal/approvals"
	"github.com/benariet/SemScan-Project-sub001/internal/attendance"
	"github.com/benariet/SemScan-Project-sub001/internal/auth"
	"github.com/benariet/SemScan-Project-sub001/internal/domain"
	"github.com/benariet/SemScan-Project-sub001/internal/emaillogs"
	"github.com/benariet/SemScan-Project-sub001/internal/middleware"
	"github.com/benariet/SemScan-Project-sub001/internal/models"
	"github.com/benariet/SemScan-Project-sub001/internal/notify"
	"github.com/benariet/SemScan-Project-sub001/internal/presenters"
	"github.com/benariet/SemScan-Project-sub001/internal/slots"
	"github.com/benariet/SemScan-Project-sub001/internal/store"
	"github.com/benariet/SemScan-Project-sub001/internal/waitlist"
	"github.com/benariet/SemScan-Project-sub001/pkg/database"
	"github.com/benariet/SemScan-Project-sub001/pkg/queue"
	"github.com/benariet/SemScan-Project-sub001/pkg/redis"
	"github.com/benariet/SemScan-Project-sub001/pkg/response"
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

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	notifier := notify.NewQueueNotifier(jobQueue, cfg.Server.PublicBaseURL, logger)
	clock := domain.SystemClock{}

	st := store.NewPostgres(pool)
	resolver := presenters.NewRepository(pool)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Slots (catalog, register, unregister, home view)
	slotService := slots.NewService(st, resolver, notifier, clock, slots.Config{
		ApprovalTTL: cfg.Approval.TokenTTL(),
	}, logger)
	slotHandler := slots.NewHandler(slotService, logger)

	// Waiting list
	waitlistService := waitlist.NewService(st, resolver, notifier, clock, logger)
	waitlistHandler := waitlist.NewHandler(waitlistService, logger)

	// Supervisor approvals
	approvalService := approvals.NewService(st, resolver, notifier, clock, approvals.Config{
		TokenTTL: cfg.Approval.TokenTTL(),
	}, logger)
	approvalHandler := approvals.NewHandler(approvalService, logger)

	// Attendance check-in sessions
	attendanceService := attendance.NewService(st, resolver, clock, attendance.Config{
		OpenWindowBefore: cfg.Attendance.OpenWindowBefore(),
		SessionDuration:  cfg.Attendance.SessionDuration(),
		PublicBaseURL:    cfg.Server.PublicBaseURL,
	}, logger)
	attendanceHandler := attendance.NewHandler(attendanceService, logger)

	// Email delivery logs
	emailLogsRepo := emaillogs.NewRepository(pool)
	emailLogsHandler := emaillogs.NewHandler(emailLogsRepo)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics())

	// Health and metrics
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Auth (public, rate limited)
	authGroup := router.Group("/auth")
	authGroup.Use(middleware.RateLimit(rdb.Client, 10, time.Minute, logger))
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Supervisor decision links (public; the token is the credential)
	router.GET("/approvals/:token/approve", approvalHandler.Approve)
	router.POST("/approvals/:token/approve", approvalHandler.Approve)
	router.GET("/approvals/:token/decline", approvalHandler.Decline)
	router.POST("/approvals/:token/decline", approvalHandler.Decline)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/me", slotHandler.Home)
		api.GET("/presenters", middleware.RequireRole(models.RoleCoordinator), authHandler.List)

		// Slots
		api.GET("/slots", slotHandler.List)
		api.POST("/slots", middleware.RequireRole(models.RoleCoordinator), slotHandler.Create)
		api.GET("/slots/:id", slotHandler.Get)
		api.POST("/slots/:id/register", slotHandler.Register)
		api.DELETE("/slots/:id/register", slotHandler.Unregister)
		api.POST("/slots/:id/approval/resend", approvalHandler.Resend)
		api.GET("/slots/:id/emails", middleware.RequireRole(models.RoleCoordinator), emailLogsHandler.ListBySlot)

		// Waiting list
		api.GET("/slots/:id/waitlist", waitlistHandler.List)
		api.POST("/slots/:id/waitlist", waitlistHandler.Join)
		api.DELETE("/slots/:id/waitlist", waitlistHandler.Leave)

		// Attendance
		api.POST("/slots/:id/attendance", attendanceHandler.Open)
		api.GET("/slots/:id/attendance", attendanceHandler.Status)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
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
