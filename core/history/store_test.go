package history

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"drift-reconciler/core/reconcile"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestStore(t *testing.T, name string) *Store {
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	closeOnCleanup(t, db)
	s := NewStore(db)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

// closeOnCleanup drops the shared in-memory database once the test ends.
func closeOnCleanup(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}
	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}
	return gormDB, mock
}

func newRecord(tenant string, startedAt int64) reconcile.Record {
	return reconcile.NewRecord(tenant, "executions", reconcile.Window{Start: 100, End: 200}, time.UnixMilli(startedAt))
}

func TestStore_LatestEmpty(t *testing.T) {
	s := setupTestStore(t, "history_latest_empty")

	rec, err := s.Latest(context.Background(), "acme", "executions")
	assert.NoError(t, err)
	assert.Nil(t, rec)
}

func TestStore_CreateAndLatest(t *testing.T) {
	s := setupTestStore(t, "history_create_latest")
	ctx := context.Background()

	firstID, err := s.Create(ctx, newRecord("acme", 1_000))
	require.NoError(t, err)
	secondID, err := s.Create(ctx, newRecord("acme", 2_000))
	require.NoError(t, err)
	_, err = s.Create(ctx, newRecord("other", 3_000))
	require.NoError(t, err)

	assert.NotEqual(t, firstID, secondID)

	rec, err := s.Latest(ctx, "acme", "executions")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, secondID, rec.ID)
	assert.Equal(t, reconcile.StatusInProgress, rec.Status)
	assert.Equal(t, int64(2_000), rec.StartedAt)
	assert.Equal(t, reconcile.Window{Start: 100, End: 200}, rec.Window())
}

func TestStore_LatestTieBrokenByID(t *testing.T) {
	s := setupTestStore(t, "history_latest_tie")
	ctx := context.Background()

	_, err := s.Create(ctx, newRecord("acme", 5_000))
	require.NoError(t, err)
	secondID, err := s.Create(ctx, newRecord("acme", 5_000))
	require.NoError(t, err)

	rec, err := s.Latest(ctx, "acme", "executions")
	require.NoError(t, err)
	assert.Equal(t, secondID, rec.ID, "UUIDv7 ids order records created in the same millisecond")
}

func TestStore_UpdateOnce(t *testing.T) {
	s := setupTestStore(t, "history_update_once")
	ctx := context.Background()

	rec := newRecord("acme", 1_000)
	id, err := s.Create(ctx, rec)
	require.NoError(t, err)
	rec.ID = id

	drift := reconcile.Drift{Missing: []string{"a"}, Mismatches: map[string]reconcile.StatusPair{"b": {}}}
	done := rec.Finish(drift, 0, time.UnixMilli(4_000))
	require.NoError(t, s.Update(ctx, done))

	got, err := s.Latest(ctx, "acme", "executions")
	require.NoError(t, err)
	assert.Equal(t, reconcile.StatusSuccess, got.Status)
	assert.Equal(t, reconcile.DetectionMissingAndStatusMismatch, got.DetectionStatus)
	assert.Equal(t, reconcile.ActionAddMissingAndStatusReconcile, got.Action)
	assert.Equal(t, int64(4_000), got.EndedAt)
	assert.Equal(t, 1, got.MissingCount)
	assert.Equal(t, 1, got.MismatchCount)

	// Terminal records are immutable
	err = s.Update(ctx, rec.Fail("late", time.UnixMilli(5_000)))
	assert.ErrorIs(t, err, reconcile.ErrRecordFinalized)

	got, err = s.Latest(ctx, "acme", "executions")
	require.NoError(t, err)
	assert.Equal(t, reconcile.StatusSuccess, got.Status)
	assert.Empty(t, got.FailureReason)
}

func TestStore_UpdateUnknown(t *testing.T) {
	s := setupTestStore(t, "history_update_unknown")

	rec := newRecord("acme", 1_000)
	rec.ID = "missing"
	err := s.Update(context.Background(), rec.Fail("x", time.UnixMilli(2_000)))
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.NotErrorIs(t, err, reconcile.ErrRecordFinalized)
}

func TestStore_List(t *testing.T) {
	s := setupTestStore(t, "history_list")
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := s.Create(ctx, newRecord("acme", int64(i*1_000)))
		require.NoError(t, err)
	}

	recs, err := s.List(ctx, "acme", "executions", 3)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, int64(5_000), recs[0].StartedAt)
	assert.Equal(t, int64(3_000), recs[2].StartedAt)

	recs, err = s.List(ctx, "nobody", "executions", 0)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestStore_LatestQueryError(t *testing.T) {
	db, mock := setupMockDB(t)
	s := NewStore(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM `reconciliation_records`")).
		WillReturnError(errors.New("server has gone away"))

	_, err := s.Latest(context.Background(), "acme", "executions")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server has gone away")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CreateError(t *testing.T) {
	db, mock := setupMockDB(t)
	s := NewStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `reconciliation_records`")).
		WillReturnError(errors.New("duplicate entry"))
	mock.ExpectRollback()

	_, err := s.Create(context.Background(), newRecord("acme", 1_000))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create record")
	assert.NoError(t, mock.ExpectationsWereMet())
}
