package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/deskline/helpdesk-service/internal/config"
)

var errRedisDisabled = errors.New("redis not configured")

// Redis backs the ingestion lock and the event fan-out channel. Every
// method accepts a nil receiver, which stands for "Redis disabled".
type Redis struct {
	Client *redis.Client
}

// NewRedis returns nil when cfg.Addr is empty. An unreachable server is
// logged but not fatal: the client reconnects on demand and readiness
// reports the failure.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if cfg.Addr == "" {
		logger.Warn("REDIS_ADDR not provided; ingestion lock and event fan-out disabled")
		return nil
	}

	r := &Redis{Client: redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})}
	if err := r.Ping(ctx); err != nil {
		logger.Warn("redis unreachable at startup", zap.String("addr", cfg.Addr), zap.Error(err))
		return r
	}
	logger.Info("connected to redis", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	return r
}

func (r *Redis) enabled() bool {
	return r != nil && r.Client != nil
}

func (r *Redis) Ping(ctx context.Context) error {
	if !r.enabled() {
		return errRedisDisabled
	}
	return r.Client.Ping(ctx).Err()
}

// Publish is a no-op when Redis is disabled.
func (r *Redis) Publish(ctx context.Context, channel string, payload []byte) error {
	if !r.enabled() {
		return nil
	}
	return r.Client.Publish(ctx, channel, payload).Err()
}

func (r *Redis) Close() {
	if r.enabled() {
		_ = r.Client.Close()
	}
}
