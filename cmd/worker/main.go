package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"ledgerimport/internal/caching"
	"ledgerimport/internal/config"
	"ledgerimport/internal/jobs"
	"ledgerimport/internal/jobs/background"
	"ledgerimport/internal/logging"
	"ledgerimport/internal/repositories"
	"ledgerimport/internal/services"
	"ledgerimport/pkg/database"

	"github.com/hibiken/asynq"
)

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

	archive, err := services.NewArchiveService(cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.Bucket, cfg.Storage.UseSSL)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize object storage")
	}
	statusCache := caching.NewRedisImportCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)

	auditSvc := services.NewAuditLogsService(repositories.NewAuditLogsRepo(pool))
	importSvc := services.NewAccountingImportService(services.LedgerRepositories{
		Journals: repositories.NewJournalsRepo(pool),
		Accounts: repositories.NewAccountsRepo(pool),
		Entries:  repositories.NewJournalEntriesRepo(pool),
		Lines:    repositories.NewJournalEntryLinesRepo(pool),
	}, auditSvc, logger, cfg.Import.BatchSize)
	processor := jobs.NewImportProcessor(importSvc, archive, statusCache, cfg.Import.StatusTTL(), logger)

	scheduler, err := background.NewJobScheduler(archive, cfg.Storage.Retention(), logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to create job scheduler")
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			logger.WithError(err).Warn("job scheduler did not stop cleanly")
		}
	}()

	srv := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     caching.NormalizeAddr(cfg.Redis.Addr),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, asynq.Config{
		Concurrency: cfg.Redis.Concurrency,
		Queues:      cfg.Redis.Queues,
		Logger:      logger,
	})

	mux := asynq.NewServeMux()
	mux.Handle(jobs.TypeAccountingImport, processor)

	if err := srv.Start(mux); err != nil {
		logger.WithError(err).Fatal("failed to start worker")
	}
	logger.Info("import worker started")

	<-ctx.Done()
	srv.Shutdown()
}
