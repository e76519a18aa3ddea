package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campus-tools/timetable-api/api/swagger"
	"github.com/campus-tools/timetable-api/internal/handler"
	internalmiddleware "github.com/campus-tools/timetable-api/internal/middleware"
	"github.com/campus-tools/timetable-api/internal/repository"
	"github.com/campus-tools/timetable-api/internal/service"
	"github.com/campus-tools/timetable-api/pkg/cache"
	"github.com/campus-tools/timetable-api/pkg/config"
	"github.com/campus-tools/timetable-api/pkg/database"
	"github.com/campus-tools/timetable-api/pkg/logger"
	corsmiddleware "github.com/campus-tools/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campus-tools/timetable-api/pkg/middleware/requestid"
)

// @title Timetable API
// @version 1.0.0
// @description Course timetable construction and publication service.
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, continuing without cache", "error", err)
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			defer cacheRepo.Close() //nolint:errcheck
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, true)
		}
	}

	validate := validator.New()

	roomRepo := repository.NewRoomRepository(db)
	termRepo := repository.NewTermRepository(db)
	instructorRepo := repository.NewInstructorRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)

	roomSvc := service.NewRoomService(roomRepo, validate, logr)
	termSvc := service.NewTermService(termRepo, validate, logr)
	instructorSvc := service.NewInstructorService(instructorRepo, termRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, instructorRepo, validate, logr)
	timetableSvc := service.NewTimetableService(
		roomRepo, instructorRepo, courseRepo, termRepo, timetableRepo,
		db, cacheSvc, metricsSvc, validate, logr,
		service.TimetableConfig{
			ProposalTTL: cfg.Scheduler.ProposalTTL,
			MaxNodes:    cfg.Scheduler.MaxNodes,
			Workers:     cfg.Scheduler.Workers,
		},
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	timetableSvc.StartWorkers(rootCtx)
	defer timetableSvc.StopWorkers()

	roomHandler := handler.NewRoomHandler(roomSvc)
	termHandler := handler.NewTermHandler(termSvc)
	instructorHandler := handler.NewInstructorHandler(instructorSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	timetableHandler := handler.NewTimetableHandler(timetableSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	{
		api.GET("/rooms", roomHandler.List)
		api.POST("/rooms", roomHandler.Create)
		api.GET("/rooms/:id", roomHandler.Get)

		api.GET("/terms", termHandler.List)
		api.POST("/terms", termHandler.Create)
		api.GET("/terms/:id", termHandler.Get)

		api.GET("/instructors", instructorHandler.List)
		api.POST("/instructors", instructorHandler.Create)
		api.GET("/instructors/:id", instructorHandler.Get)
		api.POST("/instructors/:id/terms", instructorHandler.AttachTerm)
		api.GET("/instructor-terms", instructorHandler.ListByTerm)

		api.GET("/courses", courseHandler.List)
		api.POST("/courses", courseHandler.Create)
		api.GET("/courses/:id", courseHandler.Get)
		api.DELETE("/courses/:id", courseHandler.Delete)

		api.POST("/timetables/generate", timetableHandler.Generate)
		api.GET("/timetables/proposals/:id", timetableHandler.GetProposal)
		api.POST("/timetables/save", timetableHandler.Save)
		api.GET("/timetables", timetableHandler.List)
		api.GET("/timetables/:id/sessions", timetableHandler.GetSessions)
		api.GET("/timetables/:id/export", timetableHandler.Export)
		api.DELETE("/timetables/:id", timetableHandler.Delete)

		api.GET("/system/metrics", metricsHandler.Snapshot)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
