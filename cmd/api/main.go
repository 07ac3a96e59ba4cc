package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/vedhaiygl/smart-attendance-api/api/swagger"
	"github.com/vedhaiygl/smart-attendance-api/internal/directory"
	"github.com/vedhaiygl/smart-attendance-api/internal/handler"
	"github.com/vedhaiygl/smart-attendance-api/internal/middleware"
	"github.com/vedhaiygl/smart-attendance-api/internal/repository"
	"github.com/vedhaiygl/smart-attendance-api/internal/service"
	"github.com/vedhaiygl/smart-attendance-api/internal/store"
	"github.com/vedhaiygl/smart-attendance-api/internal/token"
	"github.com/vedhaiygl/smart-attendance-api/pkg/cache"
	"github.com/vedhaiygl/smart-attendance-api/pkg/config"
	"github.com/vedhaiygl/smart-attendance-api/pkg/database"
	"github.com/vedhaiygl/smart-attendance-api/pkg/logger"
	corsmiddleware "github.com/vedhaiygl/smart-attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/vedhaiygl/smart-attendance-api/pkg/middleware/requestid"
	"github.com/vedhaiygl/smart-attendance-api/pkg/storage"
)

// @title Smart Attendance API
// @version 1.0.0
// @description QR and short-code based attendance tracking for courses and live classes
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	clock := token.SystemClock{}
	generator := token.NewGenerator(clock)
	dir := directory.NewStatic(directory.Seed())

	var attendanceStore store.Store
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
		}
		defer db.Close() //nolint:errcheck
		attendanceStore = repository.NewPostgresStore(db, clock, cfg.Attendance.QRValidity, dir)
	default:
		attendanceStore = store.NewMemoryStore(clock, cfg.Attendance.QRValidity, dir)
	}

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.ReadModel.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, read model cache disabled", "error", err)
		} else {
			defer redisClient.Close() //nolint:errcheck
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.ReadModel.CacheTTL, logr, true)
		}
	}

	selfieStorage, err := storage.NewLocalStorage(cfg.Selfies.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init selfie storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Selfies.SignedURLSecret, cfg.Selfies.SignedURLTTL)
	selfieSvc := service.NewSelfieService(selfieStorage, signer, cfg.Selfies.WorkerConcurrency, cfg.Selfies.WorkerRetries, logr)
	selfieSvc.Start(context.Background())
	defer selfieSvc.Stop()

	sessionSvc := service.NewSessionService(attendanceStore, generator, clock, cacheSvc, metricsSvc, service.SessionServiceConfig{
		QRValidity:        cfg.Attendance.QRValidity,
		RotationInterval:  cfg.Attendance.RotationInterval,
		ShortCodeAttempts: cfg.Attendance.ShortCodeMaxAttempts,
	}, nil, logr)
	defer sessionSvc.Close()

	attendanceSvc := service.NewAttendanceService(attendanceStore, cacheSvc, metricsSvc, selfieSvc, nil, logr)
	liveClassSvc := service.NewLiveClassService(attendanceStore, cacheSvc, metricsSvc, logr)
	rosterSvc := service.NewRosterService(attendanceStore, dir, cacheSvc, sessionSvc, nil, logr)

	courseHandler := handler.NewCourseHandler(rosterSvc)
	sessionHandler := handler.NewSessionHandler(sessionSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	liveClassHandler := handler.NewLiveClassHandler(liveClassSvc)
	studentHandler := handler.NewStudentHandler(rosterSvc)
	selfieHandler := handler.NewSelfieHandler(selfieSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.GET("/courses", courseHandler.List)
		api.POST("/courses", courseHandler.Create)
		api.GET("/courses/:id", courseHandler.Get)
		api.DELETE("/courses/:id", courseHandler.Delete)
		api.PUT("/courses/:id/banner", courseHandler.UpdateBanner)
		api.POST("/courses/:id/students", courseHandler.Enroll)
		api.POST("/reset", courseHandler.Reset)

		api.POST("/courses/:id/sessions", sessionHandler.Create)
		api.DELETE("/courses/:id/sessions/:sessionId", sessionHandler.Delete)
		api.POST("/sessions/:sessionId/regenerate", sessionHandler.Regenerate)
		api.GET("/sessions/:sessionId/token", sessionHandler.TokenState)

		api.POST("/attendance/mark", attendanceHandler.Mark)
		api.POST("/courses/:id/sessions/:sessionId/attendance/:studentId/toggle", attendanceHandler.Toggle)
		api.GET("/courses/:id/attendance-summary", attendanceHandler.CourseSummary)
		api.GET("/courses/:id/attendance/:studentId/summary", attendanceHandler.Summary)

		api.POST("/courses/:id/live-classes", liveClassHandler.Start)
		api.POST("/courses/:id/live-classes/:liveClassId/end", liveClassHandler.End)
		api.POST("/courses/:id/live-classes/:liveClassId/join", liveClassHandler.Join)
		api.POST("/courses/:id/live-classes/:liveClassId/leave", liveClassHandler.Leave)

		api.GET("/students", studentHandler.List)
		api.GET("/sessions/:sessionId/selfies/:studentId/url", selfieHandler.SignedURL)
		api.GET("/selfies", selfieHandler.Serve)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "store", cfg.Store.Driver)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
