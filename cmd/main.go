package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ledgerimport/internal/caching"
	"ledgerimport/internal/config"
	"ledgerimport/internal/handlers"
	"ledgerimport/internal/logging"
	"ledgerimport/internal/middleware"
	"ledgerimport/internal/repositories"
	"ledgerimport/internal/services"
	"ledgerimport/pkg/database"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logging.New("info").WithError(err).Fatal("invalid configuration")
	}
	logger := logging.New(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.Database.URL, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	defer pool.Close()

	if cfg.Auth.JWTSecret == "" && cfg.Auth.JWKSURL == "" {
		cfg.Auth.JWTSecret = random.String(32)
		logger.Warn("JWT_SECRET is not set, using a generated secret")
	}

	statusCache := caching.NewRedisImportCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)

	archive, err := services.NewArchiveService(cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.Bucket, cfg.Storage.UseSSL)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize object storage")
	}
	if err := archive.EnsureBucketExists(ctx); err != nil {
		logger.WithError(err).WithField("bucket", cfg.Storage.Bucket).Warn("failed to ensure archive bucket")
	}

	queue := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     caching.NormalizeAddr(cfg.Redis.Addr),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer queue.Close()

	auditSvc := services.NewAuditLogsService(repositories.NewAuditLogsRepo(pool))
	importSvc := services.NewAccountingImportService(services.LedgerRepositories{
		Journals: repositories.NewJournalsRepo(pool),
		Accounts: repositories.NewAccountsRepo(pool),
		Entries:  repositories.NewJournalEntriesRepo(pool),
		Lines:    repositories.NewJournalEntryLinesRepo(pool),
	}, auditSvc, logger, cfg.Import.BatchSize)

	importHandlers := handlers.NewImportHandlers(importSvc, auditSvc, archive, statusCache, queue, handlers.ImportOptions{
		DefaultCurrency: cfg.Import.DefaultCurrency,
		AsyncThreshold:  int64(cfg.Import.AsyncThresholdMiB) << 20,
		StatusTTL:       cfg.Import.StatusTTL(),
		MaxRetry:        cfg.Import.MaxRetryAttempts,
		Timeout:         cfg.Import.Timeout(),
	}, logger)
	auditHandlers := handlers.NewAuditLogsHandlers(auditSvc)
	healthHandlers := handlers.NewHealthHandlers(pool, statusCache, archive, version)

	jwtMiddleware, stopJWKS, err := middleware.NewJWTMiddleware(middleware.AuthOptions{
		Secret:  cfg.Auth.JWTSecret,
		JWKSURL: cfg.Auth.JWKSURL,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to configure authentication")
	}
	defer stopJWKS()

	e := echo.New()
	e.HideBanner = true

	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())
	e.Use(echoMiddleware.BodyLimit(cfg.Server.BodyLimit))

	versionMiddleware := middleware.NewVersionMiddleware()
	e.Use(versionMiddleware.APIVersionResolver())

	// Health endpoints (no auth required)
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)
	e.GET("/health/live", healthHandlers.LivenessCheck)

	v1 := e.Group("/v1")
	v1.Use(versionMiddleware.VersionHeader("v1"))
	v1.Use(jwtMiddleware, middleware.RequireTenant)

	uploadLimit := middleware.TenantRateLimit(statusCache, "upload", cfg.Import.UploadsPerMinute, time.Minute, logger)
	v1.POST("/imports", importHandlers.Upload, uploadLimit)
	v1.POST("/imports/preview", importHandlers.Preview, uploadLimit)
	v1.GET("/imports/history", importHandlers.History)
	v1.GET("/imports/:id", importHandlers.Status)

	v1.GET("/audit-logs", auditHandlers.ListAuditLogs)
	v1.GET("/audit-logs/:id", auditHandlers.GetAuditLog)

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("starting server")
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server stopped")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}
