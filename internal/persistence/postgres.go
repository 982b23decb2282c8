package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/deskline/helpdesk-service/internal/config"
)

const connectTimeout = 10 * time.Second

var errPostgresDisabled = errors.New("postgres not configured")

// Postgres holds the ticket database pool. Pool is nil when no DSN is set
// and tickets are kept in memory.
type Postgres struct {
	Pool *pgxpool.Pool
}

// NewPostgres opens and pings the pool named by cfg.DSN.
func NewPostgres(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*Postgres, error) {
	if cfg.DSN == "" {
		logger.Warn("POSTGRES_DSN not provided; tickets are kept in memory")
		return &Postgres{}, nil
	}

	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Info("connected to postgres",
		zap.String("database", poolCfg.ConnConfig.Database),
		zap.Int32("max_conns", poolCfg.MaxConns))
	return &Postgres{Pool: pool}, nil
}

// poolConfig applies the optional pool limits on top of the DSN.
func poolConfig(cfg config.PostgresConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse POSTGRES_DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxIdleSec > 0 {
		poolCfg.MaxConnIdleTime = seconds(cfg.ConnMaxIdleSec)
	}
	if cfg.ConnMaxLifeSec > 0 {
		poolCfg.MaxConnLifetime = seconds(cfg.ConnMaxLifeSec)
	}
	return poolCfg, nil
}

func seconds(n int32) time.Duration { return time.Duration(n) * time.Second }

// Enabled is safe on a nil receiver.
func (p *Postgres) Enabled() bool {
	return p != nil && p.Pool != nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	if !p.Enabled() {
		return errPostgresDisabled
	}
	return p.Pool.Ping(ctx)
}

func (p *Postgres) Close() {
	if p.Enabled() {
		p.Pool.Close()
	}
}
