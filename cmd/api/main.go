package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/deskline/helpdesk-service/internal/api/http"
	"github.com/deskline/helpdesk-service/internal/api/http/handlers"
	"github.com/deskline/helpdesk-service/internal/auth"
	"github.com/deskline/helpdesk-service/internal/config"
	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/events"
	"github.com/deskline/helpdesk-service/internal/mail"
	"github.com/deskline/helpdesk-service/internal/mail/inbound"
	"github.com/deskline/helpdesk-service/internal/observability"
	"github.com/deskline/helpdesk-service/internal/persistence"
	"github.com/deskline/helpdesk-service/internal/repository"
	"github.com/deskline/helpdesk-service/internal/repository/memory"
	"github.com/deskline/helpdesk-service/internal/service"
	"github.com/deskline/helpdesk-service/internal/worker"
)

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var store repository.Store
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		store = repository.NewPostgresStore(pg.Pool)
	} else {
		store = memory.NewStore()
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	var publisher service.Publisher
	if redis != nil {
		publisher = redis
	}
	notificationService := service.NewNotificationService(dispatcher, publisher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService, logger)

	var validator mail.Validator
	if cfg.Helpdesk.ValidateAddresses {
		validator = mail.NewAddressValidator()
	}
	mailer := mail.NewMailer(mail.NewSMTPRouter(cfg.SMTP), validator, logger, metrics)

	prefixes, err := config.LoadReplyPrefixes(cfg.Helpdesk.ReplyPrefixesFile)
	if err != nil {
		logger.Fatal("failed to load reply prefixes", zap.Error(err))
	}

	ticketService := service.NewTicketService(service.TicketDependencies{
		Store:      store,
		Mailer:     mailer,
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
		Helpdesk:   cfg.Helpdesk,
	})
	ingestService := service.NewIngestService(service.IngestDependencies{
		Store:         store,
		Dispatcher:    dispatcher,
		Logger:        logger,
		Metrics:       metrics,
		Helpdesk:      cfg.Helpdesk,
		ReplyPrefixes: prefixes,
	})
	authService := service.NewAuthService(cfg.Auth, store, logger)
	if cfg.Auth.BootstrapEmail != "" && cfg.Auth.BootstrapPassword != "" {
		if _, err := authService.EnsureUser(ctx, service.UserCreateInput{
			Name:     cfg.Auth.BootstrapName,
			Email:    cfg.Auth.BootstrapEmail,
			Password: cfg.Auth.BootstrapPassword,
			Role:     domain.UserRoleAdmin,
		}); err != nil {
			logger.Fatal("failed to create bootstrap user", zap.Error(err))
		}
	}
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), authService)

	var (
		mailboxRunner handlers.MailboxRunner
		scheduler     *worker.IngestScheduler
	)
	if cfg.Mailbox.Configured() {
		fetcher := inbound.NewIMAPFetcher(cfg.Mailbox, logger)
		job := worker.NewIngestJob(fetcher, ingestService, worker.NewRedisLock(redis, cfg.Ingest), cfg.Mailbox, logger, metrics)
		mailboxRunner = job
		if cfg.Ingest.Enabled {
			scheduler, err = worker.NewIngestScheduler(job, cfg.Ingest, cfg.Helpdesk.Location(), logger)
			if err != nil {
				logger.Fatal("invalid ingest schedule", zap.Error(err))
			}
			if err := scheduler.Start(ctx); err != nil {
				logger.Fatal("failed to start ingest scheduler", zap.Error(err))
			}
		}
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
		BodyLimit:             32 * 1024 * 1024,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, cfg.Helpdesk.Location()),
		Ingest:         handlers.NewIngestHandler(ingestService, mailboxRunner),
		Metrics:        metrics.Handler(),
		AuthMiddleware: authMiddleware.Handle,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if scheduler != nil {
		scheduler.Stop()
	}
	cancel()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
