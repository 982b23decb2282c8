package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another holder owns the lock.
var ErrLockHeld = errors.New("lock is held by another process")

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock is a single-key mutual exclusion lock with a TTL.
type Lock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewLock returns a lock on key. With a nil Redis the lock always succeeds.
func NewLock(r *Redis, key string, ttl time.Duration) *Lock {
	l := &Lock{key: key, ttl: ttl}
	if r != nil {
		l.client = r.Client
	}
	return l
}

// Acquire takes the lock and returns a release func. It fails with
// ErrLockHeld when the key is already owned.
func (l *Lock) Acquire(ctx context.Context) (func(context.Context) error, error) {
	if l.client == nil {
		return func(context.Context) error { return nil }, nil
	}
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.client, []string{l.key}, token).Err()
	}, nil
}
