package lock

import (
	"context"
	"testing"
	"time"

	"drift-reconciler/core/reconcile"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestRedisLocker_UnreachableServer(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	locker := NewRedisLocker(rdb, 10*time.Millisecond)
	_, err := locker.Acquire(context.Background(), "reconcile:t1:executions", 200*time.Millisecond, time.Minute)

	assert.Error(t, err)
	assert.NotErrorIs(t, err, reconcile.ErrLockNotObtained, "a dial failure is not lock contention")
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect(context.Background(), Config{Address: "127.0.0.1:1"})
	assert.Error(t, err)
}
