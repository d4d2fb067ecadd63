package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/centerdesk/center-api/api/swagger"
	"github.com/centerdesk/center-api/internal/handler"
	"github.com/centerdesk/center-api/internal/jobs"
	"github.com/centerdesk/center-api/internal/middleware"
	"github.com/centerdesk/center-api/internal/repository"
	"github.com/centerdesk/center-api/internal/service"
	"github.com/centerdesk/center-api/pkg/cache"
	"github.com/centerdesk/center-api/pkg/config"
	"github.com/centerdesk/center-api/pkg/database"
	"github.com/centerdesk/center-api/pkg/events"
	pkgjobs "github.com/centerdesk/center-api/pkg/jobs"
	"github.com/centerdesk/center-api/pkg/logger"
	corsmiddleware "github.com/centerdesk/center-api/pkg/middleware/cors"
	reqidmiddleware "github.com/centerdesk/center-api/pkg/middleware/requestid"
)

// @title Center API
// @version 0.1.0
// @description Education-center administration core
// @BasePath /
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	publisher := events.NewRedisPublisher(redisClient, cfg.Events.Channel, cfg.Events.PublishTimeout)

	itemRepo := repository.NewScheduleItemRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	classRepo := repository.NewClassRepository(db)
	tenantRepo := repository.NewTenantRepository(db)

	metricsSvc := service.NewMetricsService()
	conflictSvc := service.NewConflictService(itemRepo, metricsSvc, logr)
	scheduleSvc := service.NewScheduleService(itemRepo, groupRepo, classRepo, conflictSvc, publisher, nil, logr, cfg.Events.AdvisoryEnabled)
	statusSvc := service.NewClassStatusService(classRepo, publisher, nil, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Scheduler.Enabled {
		transitions := jobs.NewTransitionScheduler(tenantRepo, classRepo, publisher, metricsSvc, logr)
		runner := pkgjobs.NewRunner("status-transitions", transitions.Run, pkgjobs.RunnerConfig{
			Interval:   cfg.Scheduler.Interval,
			RunTimeout: cfg.Scheduler.Timeout,
			Logger:     logr,
		})
		runner.Start(ctx)
		defer runner.Stop()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	statusHandler := handler.NewClassStatusHandler(statusSvc)

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/schedules/validate", scheduleHandler.Validate)
		api.POST("/schedules/conflicts", scheduleHandler.CheckConflicts)
		api.GET("/groups/:id/schedule", scheduleHandler.GetGroupSchedule)
		api.PUT("/groups/:id/schedule", scheduleHandler.ReplaceGroupSchedule)
		api.PUT("/classes/:id/duration", scheduleHandler.ChangeClassDuration)
		api.GET("/classes/:id/statuses", statusHandler.AvailableStatuses)
		api.PATCH("/classes/:id/status", statusHandler.ChangeStatus)
		api.POST("/classes/status/bulk", statusHandler.BulkChangeStatus)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")
	if err := srv.Shutdown(context.Background()); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}
