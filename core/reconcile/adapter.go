package reconcile

import (
	"context"
	"time"
)

// Locker hands out leased, mutually exclusive locks keyed by name.
type Locker interface {
	// Acquire blocks until the lock is held or wait elapses. On timeout it
	// returns ErrLockNotObtained. The lock expires on its own after lease.
	Acquire(ctx context.Context, key string, wait, lease time.Duration) (Lock, error)
}

// Lock is a held lease.
type Lock interface {
	// Release gives the lock back. Releasing an expired lock is not an error.
	Release(ctx context.Context) error
	// Refresh extends the lease. It fails once the lease has been lost.
	Refresh(ctx context.Context, lease time.Duration) error
}

// RecordStore persists reconciliation records.
type RecordStore interface {
	// Latest returns the most recently started record for the pair, or nil when there is none.
	Latest(ctx context.Context, tenantID, entityType string) (*Record, error)
	// Create persists a new record and returns its assigned id.
	Create(ctx context.Context, record Record) (string, error)
	// Update overwrites a record that is still in progress.
	// It returns ErrRecordFinalized when the stored record is already terminal.
	Update(ctx context.Context, record Record) error
}

// Primary is the read-only view of the authoritative store for one entity type.
type Primary interface {
	// IDsInWindow returns the ids created within the window, after entity filtering.
	IDsInWindow(ctx context.Context, tenantID string, window Window) (IDSet, error)
	// CountInWindow counts the rows IDsInWindow would return.
	CountInWindow(ctx context.Context, tenantID string, window Window) (int64, error)
	// Fetch loads the canonical row for id. It returns ErrRowNotFound when the row is gone.
	Fetch(ctx context.Context, tenantID, id string) (Row, error)
	// Statuses returns the current status of each id that still exists.
	Statuses(ctx context.Context, tenantID string, ids []string) (map[string]string, error)
}

// Mirror is the secondary store kept in line with Primary for one entity type.
// Every mutating call must be safe to repeat.
type Mirror interface {
	IDsInWindow(ctx context.Context, tenantID string, window Window) (IDSet, error)
	CountInWindow(ctx context.Context, tenantID string, window Window) (int64, error)
	// RunningStatuses returns the ids the mirror believes are still running.
	// Entities without a status lifecycle return an empty map.
	RunningStatuses(ctx context.Context, tenantID string) (map[string]string, error)
	// Insert writes row unless a row with the same id already exists.
	Insert(ctx context.Context, row Row) error
	// DeleteBatch removes all given ids in one call.
	DeleteBatch(ctx context.Context, tenantID string, ids []string) error
	// UpdateStatus patches the status column of a single row. The engine repairs
	// statuses with Replace; UpdateStatus serves callers that only hold a status.
	UpdateStatus(ctx context.Context, tenantID, id, status string) error
	// Replace overwrites the stored row with row.
	Replace(ctx context.Context, row Row) error
}

// Observer is notified after every attempt that reached a terminal record.
type Observer interface {
	AttemptFinished(ctx context.Context, record Record, drift Drift)
}

// SkipObserver is implemented by observers that also want to count skipped attempts.
type SkipObserver interface {
	AttemptSkipped(tenantID, entityType, reason string)
}

// Pair binds the two stores of one entity type.
type Pair struct {
	Primary Primary
	Mirror  Mirror
}
