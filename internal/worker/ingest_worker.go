package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/deskline/helpdesk-service/internal/config"
	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/mail/inbound"
	"github.com/deskline/helpdesk-service/internal/observability"
	"github.com/deskline/helpdesk-service/internal/persistence"
)

const ingestLockKey = "helpdesk:ingest:lock"

// MailFetcher pulls a batch of raw messages from a mailbox.
type MailFetcher interface {
	Channel() string
	Fetch(ctx context.Context, handler inbound.BatchHandler) (int, error)
}

// RawIngester files raw messages as tickets and talks.
type RawIngester interface {
	IngestRaw(ctx context.Context, channel domain.IngestChannel, raws [][]byte) (*domain.IngestResult, error)
}

// Locker guards a run against concurrent runs elsewhere.
type Locker interface {
	Acquire(ctx context.Context) (func(context.Context) error, error)
}

// IngestJob runs one fetch and ingest cycle.
type IngestJob struct {
	fetcher  MailFetcher
	ingester RawIngester
	lock     Locker
	channel  domain.IngestChannel
	logger   *zap.Logger
	metrics  *observability.Metrics
	timeout  time.Duration
}

// NewIngestJob wires a job for one mailbox. lock may be nil.
func NewIngestJob(fetcher MailFetcher, ingester RawIngester, lock Locker, mailbox config.MailboxConfig, logger *zap.Logger, metrics *observability.Metrics) *IngestJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestJob{
		fetcher:  fetcher,
		ingester: ingester,
		lock:     lock,
		channel: domain.IngestChannel{
			Name:            fetcher.Channel(),
			Kind:            mailbox.Kind,
			FileAttachments: mailbox.FileAttachments,
		},
		logger:  logger,
		metrics: metrics,
		timeout: 5 * time.Minute,
	}
}

// NewRedisLock returns the lock shared by every ingest process.
func NewRedisLock(redis *persistence.Redis, cfg config.IngestConfig) *persistence.Lock {
	ttl := time.Duration(cfg.LockTTLSecond) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return persistence.NewLock(redis, ingestLockKey, ttl)
}

// Run fetches unseen mail and ingests it as one batch. When another
// process holds the lock the run is skipped without error.
func (j *IngestJob) Run(ctx context.Context) (*domain.IngestResult, error) {
	if j.lock != nil {
		release, err := j.lock.Acquire(ctx)
		if errors.Is(err, persistence.ErrLockHeld) {
			j.logger.Info("ingest run skipped, lock held elsewhere")
			return &domain.IngestResult{Tickets: []string{}}, nil
		}
		if err != nil {
			j.metrics.RecordIngestRun(err)
			return nil, fmt.Errorf("acquire ingest lock: %w", err)
		}
		defer func() {
			if err := release(context.Background()); err != nil {
				j.logger.Warn("release ingest lock", zap.Error(err))
			}
		}()
	}

	result := &domain.IngestResult{Tickets: []string{}}
	count, err := j.fetcher.Fetch(ctx, func(ctx context.Context, raws [][]byte) error {
		res, err := j.ingester.IngestRaw(ctx, j.channel, raws)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	j.metrics.RecordIngestRun(err)
	if err != nil {
		j.logger.Error("ingest run failed", zap.String("channel", j.channel.Name), zap.Error(err))
		return nil, err
	}
	j.logger.Info("ingest run finished",
		zap.String("channel", j.channel.Name),
		zap.Int("fetched", count),
		zap.Int("created", result.Created),
		zap.Int("follow_ups", result.FollowUps),
		zap.Int("unparseable", result.MessagesSkipped))
	return result, nil
}

// IngestScheduler runs an IngestJob on a cron schedule.
type IngestScheduler struct {
	job      *IngestJob
	cron     *cron.Cron
	schedule string
	logger   *zap.Logger
	stopOnce sync.Once
}

// NewIngestScheduler validates the schedule and prepares the cron engine
// in the helpdesk timezone.
func NewIngestScheduler(job *IngestJob, cfg config.IngestConfig, location *time.Location, logger *zap.Logger) (*IngestScheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("invalid ingest schedule %q: %w", cfg.Schedule, err)
	}
	return &IngestScheduler{
		job:      job,
		cron:     cron.New(cron.WithLocation(location), cron.WithParser(parser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		schedule: cfg.Schedule,
		logger:   logger,
	}, nil
}

// Start registers the job and starts the cron loop. The loop stops when
// ctx is cancelled or Stop is called.
func (s *IngestScheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		if ctx.Err() != nil {
			return
		}
		runCtx, cancel := context.WithTimeout(ctx, s.job.timeout)
		defer cancel()
		_, _ = s.job.Run(runCtx)
	})
	if err != nil {
		return fmt.Errorf("schedule ingest job: %w", err)
	}
	s.cron.Start()
	s.logger.Info("ingest scheduler started", zap.String("schedule", s.schedule))
	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *IngestScheduler) Stop() {
	s.stopOnce.Do(func() {
		<-s.cron.Stop().Done()
		s.logger.Info("ingest scheduler stopped")
	})
}
