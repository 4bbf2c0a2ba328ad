package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"drift-reconciler/core/reconcile"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// RedisLocker is a Locker backed by Redis through redislock.
type RedisLocker struct {
	client *redislock.Client
	retry  time.Duration
}

// NewRedisLocker wraps an existing Redis client.
func NewRedisLocker(rdb redislock.RedisClient, retry time.Duration) *RedisLocker {
	if retry <= 0 {
		retry = 100 * time.Millisecond
	}
	return &RedisLocker{client: redislock.New(rdb), retry: retry}
}

// Acquire implements reconcile.Locker.
func (r *RedisLocker) Acquire(ctx context.Context, key string, wait, ttl time.Duration) (reconcile.Lock, error) {
	// redislock keeps retrying until the context deadline
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	l, err := r.client.Obtain(ctx, key, ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(r.retry),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", reconcile.ErrLockNotObtained, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}
	return &redisLock{lock: l}, nil
}

type redisLock struct {
	lock *redislock.Lock
}

func (l *redisLock) Release(ctx context.Context) error {
	err := l.lock.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		return nil
	}
	return err
}

func (l *redisLock) Refresh(ctx context.Context, ttl time.Duration) error {
	err := l.lock.Refresh(ctx, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return fmt.Errorf("%w: lease on %s was lost", reconcile.ErrLockNotObtained, l.lock.Key())
	}
	return err
}

// Connect opens a Redis client and verifies it with a ping.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Address, err)
	}
	return rdb, nil
}

// New builds the Locker selected by cfg.Driver. The returned close func releases
// the backend connection.
func New(ctx context.Context, cfg Config) (reconcile.Locker, func() error, error) {
	switch cfg.Driver {
	case DriverRedis:
		rdb, err := Connect(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return NewRedisLocker(rdb, cfg.RetryInterval), rdb.Close, nil
	case DriverMemory, "":
		return NewMemoryLocker(cfg.RetryInterval), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported lock driver: %s", cfg.Driver)
	}
}
