package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"drift-reconciler/core/reconcile"

	"github.com/google/uuid"
)

// MemoryLocker is a process-local Locker with the same lease semantics as RedisLocker.
type MemoryLocker struct {
	mu     sync.Mutex
	leases map[string]lease
	retry  time.Duration
}

type lease struct {
	token   string
	expires time.Time
}

// NewMemoryLocker creates a MemoryLocker polling every retry while waiting.
func NewMemoryLocker(retry time.Duration) *MemoryLocker {
	if retry <= 0 {
		retry = 10 * time.Millisecond
	}
	return &MemoryLocker{
		leases: make(map[string]lease),
		retry:  retry,
	}
}

// Acquire implements reconcile.Locker.
func (m *MemoryLocker) Acquire(ctx context.Context, key string, wait, ttl time.Duration) (reconcile.Lock, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(wait)

	for {
		if m.tryObtain(key, token, ttl) {
			return &memoryLock{locker: m, key: key, token: token}, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("%w: %s", reconcile.ErrLockNotObtained, key)
		}
		timer := time.NewTimer(min(m.retry, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (m *MemoryLocker) tryObtain(key, token string, ttl time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if held, ok := m.leases[key]; ok && now.Before(held.expires) {
		return false
	}
	m.leases[key] = lease{token: token, expires: now.Add(ttl)}
	return true
}

// Held reports whether key is currently leased.
func (m *MemoryLocker) Held(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	held, ok := m.leases[key]
	return ok && time.Now().Before(held.expires)
}

type memoryLock struct {
	locker *MemoryLocker
	key    string
	token  string
}

func (l *memoryLock) Release(_ context.Context) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()

	// Only drop the lease if it is still ours
	if held, ok := l.locker.leases[l.key]; ok && held.token == l.token {
		delete(l.locker.leases, l.key)
	}
	return nil
}

func (l *memoryLock) Refresh(_ context.Context, ttl time.Duration) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()

	now := time.Now()
	held, ok := l.locker.leases[l.key]
	if !ok || held.token != l.token || !now.Before(held.expires) {
		return fmt.Errorf("%w: lease on %s was lost", reconcile.ErrLockNotObtained, l.key)
	}
	l.locker.leases[l.key] = lease{token: l.token, expires: now.Add(ttl)}
	return nil
}
