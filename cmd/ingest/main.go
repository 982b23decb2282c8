package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/deskline/helpdesk-service/internal/config"
	"github.com/deskline/helpdesk-service/internal/events"
	"github.com/deskline/helpdesk-service/internal/mail/inbound"
	"github.com/deskline/helpdesk-service/internal/observability"
	"github.com/deskline/helpdesk-service/internal/persistence"
	"github.com/deskline/helpdesk-service/internal/repository"
	"github.com/deskline/helpdesk-service/internal/service"
	"github.com/deskline/helpdesk-service/internal/worker"
)

// ingest runs one fetch and ingest cycle against the configured mailbox
// and exits. It is meant for an external scheduler such as a cron job.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if !cfg.Mailbox.Configured() {
		logger.Fatal("no mailbox configured; set MAILBOX_HOST and MAILBOX_USER")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	if !pg.Enabled() {
		logger.Fatal("POSTGRES_DSN is required for one-shot ingestion")
	}
	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	dispatcher := events.NewInMemoryDispatcher()
	var publisher service.Publisher
	if redis != nil {
		publisher = redis
	}
	service.NewNotificationService(dispatcher, publisher, logger, cfg.Notification).RegisterHandlers()

	prefixes, err := config.LoadReplyPrefixes(cfg.Helpdesk.ReplyPrefixesFile)
	if err != nil {
		logger.Fatal("failed to load reply prefixes", zap.Error(err))
	}

	ingestService := service.NewIngestService(service.IngestDependencies{
		Store:         repository.NewPostgresStore(pg.Pool),
		Dispatcher:    dispatcher,
		Logger:        logger,
		Helpdesk:      cfg.Helpdesk,
		ReplyPrefixes: prefixes,
	})

	job := worker.NewIngestJob(
		inbound.NewIMAPFetcher(cfg.Mailbox, logger),
		ingestService,
		worker.NewRedisLock(redis, cfg.Ingest),
		cfg.Mailbox,
		logger,
		nil,
	)
	result, err := job.Run(ctx)
	if err != nil {
		logger.Fatal("ingest run failed", zap.Error(err))
	}
	logger.Info("ingest complete",
		zap.Int("created", result.Created),
		zap.Int("follow_ups", result.FollowUps),
		zap.Int("talks", result.Talks),
		zap.Int("unparseable", result.MessagesSkipped),
		zap.Strings("tickets", result.Tickets))
}
