package runlock

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockKey = "ga4_pipeline:run_lock"

// releaseScript deletes the lock only when this instance still holds it, so
// an expired lock taken over by another run is never released from here.
const releaseScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0`

// RedisLock serializes pipeline runs across processes with a SETNX lock.
// The TTL bounds how long a crashed run can block the schedule.
type RedisLock struct {
	client *redis.Client
	token  string
	ttl    time.Duration
	logger *slog.Logger
}

// New creates a Redis-backed run lock with a unique holder token.
func New(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisLock {
	return &RedisLock{
		client: client,
		token:  uuid.NewString(),
		ttl:    ttl,
		logger: logger.With("component", "run_lock"),
	}
}

// Acquire attempts to take the lock. It returns false without error when
// another run holds it.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKey, l.token, l.ttl).Result()
	if err != nil {
		return false, err
	}
	if !ok {
		l.logger.Debug("run lock held elsewhere")
	}
	return ok, nil
}

// Release frees the lock if this instance still holds it.
func (l *RedisLock) Release(ctx context.Context) error {
	return l.client.Eval(ctx, releaseScript, []string{lockKey}, l.token).Err()
}
