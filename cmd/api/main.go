package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/haimph/transfer-approval-api/api/swagger"
	"github.com/haimph/transfer-approval-api/internal/handler"
	"github.com/haimph/transfer-approval-api/internal/middleware"
	"github.com/haimph/transfer-approval-api/internal/models"
	"github.com/haimph/transfer-approval-api/internal/repository"
	"github.com/haimph/transfer-approval-api/internal/service"
	"github.com/haimph/transfer-approval-api/pkg/cache"
	"github.com/haimph/transfer-approval-api/pkg/config"
	"github.com/haimph/transfer-approval-api/pkg/database"
	"github.com/haimph/transfer-approval-api/pkg/jobs"
	"github.com/haimph/transfer-approval-api/pkg/logger"
	corsmiddleware "github.com/haimph/transfer-approval-api/pkg/middleware/cors"
	reqidmiddleware "github.com/haimph/transfer-approval-api/pkg/middleware/requestid"
	"github.com/haimph/transfer-approval-api/pkg/storage"
)

// @title Transfer Approval API
// @version 1.0.0
// @description Three-stage approval workflow for employee transfer requests
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var cacheRepo service.CacheRepository
	if cfg.Dashboard.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, dashboard cache disabled", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}

	userRepo := repository.NewUserRepository(db)
	transferRepo := repository.NewTransferRepository(db)
	validate := validator.New()

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled && cacheRepo != nil)

	auditTrail := service.NewAuditTrail(userRepo, jobs.QueueConfig{
		Workers:    cfg.Audit.QueueWorkers,
		BufferSize: cfg.Audit.QueueBuffer,
	}, logr)
	auditTrail.Start(context.Background())
	defer auditTrail.Stop()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "transfer-approval-api",
	})

	dashboardSvc := service.NewDashboardService(transferRepo, cacheSvc, logr, service.DashboardServiceConfig{
		CacheTTL: cfg.Dashboard.CacheTTL,
	})
	transferSvc := service.NewTransferService(transferRepo, auditTrail, dashboardSvc, metricsSvc, logr)
	batchSvc := service.NewBatchService(transferRepo, userRepo, auditTrail, dashboardSvc, logr)

	var exportArchive *storage.LocalStorage
	if cfg.Exports.Enabled && cfg.Exports.ArchiveDir != "" {
		exportArchive, err = storage.NewLocalStorage(cfg.Exports.ArchiveDir)
		if err != nil {
			logr.Sugar().Warnw("export archive unavailable", "error", err)
		}
	}
	exportSvc := service.NewExportService(transferRepo, exportArchive, logr, service.ExportServiceConfig{
		Enabled:          cfg.Exports.Enabled,
		MaxRows:          cfg.Exports.MaxRows,
		ArchiveRetention: cfg.Exports.ArchiveRetention,
	})

	authHandler := handler.NewAuthHandler(authSvc)
	batchHandler := handler.NewBatchHandler(batchSvc)
	transferHandler := handler.NewTransferHandler(transferSvc, dashboardSvc, exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
			auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
		}

		protected := api.Group("")
		protected.Use(middleware.JWT(authSvc))
		{
			protected.GET("/users/leads", batchHandler.ListLeads)
			protected.POST("/batches",
				middleware.RequireRoles(models.RoleSupervisor),
				middleware.Audit(auditTrail, models.AuditActionBatchCreate, "batch"),
				batchHandler.Create)
			protected.GET("/batches/:id", batchHandler.Get)

			transfers := protected.Group("/transfers")
			{
				transfers.GET("", transferHandler.List)
				transfers.GET("/export", transferHandler.Export)
				transfers.GET("/mine", middleware.RequireRoles(models.RoleSupervisor), transferHandler.Mine)
				transfers.GET("/approved-by-me", middleware.RequireRoles(models.RoleLead), transferHandler.ApprovedByMe)
				transfers.GET("/confirmed-by-me", middleware.RequireRoles(models.RoleDataProcessor), transferHandler.ConfirmedByMe)
				transfers.POST("/bulk", transferHandler.Bulk)
				transfers.GET("/:id", transferHandler.Get)
				transfers.POST("/:id/approve", middleware.RequireRoles(models.RoleLead), transferHandler.Approve)
				transfers.POST("/:id/confirm", middleware.RequireRoles(models.RoleDataProcessor), transferHandler.Confirm)
				transfers.POST("/:id/reject", middleware.RequireRoles(models.RoleLead, models.RoleDataProcessor), transferHandler.Reject)
				transfers.POST("/:id/cancel", middleware.RequireRoles(models.RoleSupervisor), transferHandler.Cancel)
			}

			protected.GET("/ops/metrics", metricsHandler.Snapshot)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
