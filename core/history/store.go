package history

import (
	"context"
	"fmt"

	"drift-reconciler/core/reconcile"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store is a gorm-backed reconcile.RecordStore.
type Store struct {
	db *gorm.DB
}

var _ reconcile.RecordStore = (*Store)(nil)

// NewStore creates a Store on db.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the audit table.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&recordRow{}); err != nil {
		return fmt.Errorf("failed to migrate %s: %w", TableName, err)
	}
	return nil
}

// Latest returns the most recently started record, ties broken by id.
// Ids are UUIDv7, so they sort in creation order.
func (s *Store) Latest(ctx context.Context, tenantID, entityType string) (*reconcile.Record, error) {
	var rows []recordRow
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND entity_type = ?", tenantID, entityType).
		Order("started_at desc, id desc").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load latest record: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	rec := rows[0].toRecord()
	return &rec, nil
}

// Create inserts record under a new time-ordered id.
func (s *Store) Create(ctx context.Context, record reconcile.Record) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate record id: %w", err)
	}
	record.ID = id.String()

	row := fromRecord(record)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("failed to create record: %w", err)
	}
	return record.ID, nil
}

// Update overwrites a record that is still in progress.
func (s *Store) Update(ctx context.Context, record reconcile.Record) error {
	row := fromRecord(record)
	res := s.db.WithContext(ctx).
		Model(&recordRow{}).
		Where("id = ? AND status = ?", record.ID, string(reconcile.StatusInProgress)).
		Updates(map[string]any{
			"status":           row.Status,
			"ended_at":         row.EndedAt,
			"detection_status": row.DetectionStatus,
			"action":           row.Action,
			"missing_count":    row.MissingCount,
			"duplicate_count":  row.DuplicateCount,
			"mismatch_count":   row.MismatchCount,
			"failed_repairs":   row.FailedRepairs,
			"failure_reason":   row.FailureReason,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update record %s: %w", record.ID, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// Nothing matched: either the record is terminal or it never existed
	var count int64
	if err := s.db.WithContext(ctx).Model(&recordRow{}).Where("id = ?", record.ID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check record %s: %w", record.ID, err)
	}
	if count == 0 {
		return fmt.Errorf("record %s: %w", record.ID, gorm.ErrRecordNotFound)
	}
	return fmt.Errorf("record %s: %w", record.ID, reconcile.ErrRecordFinalized)
}

// List returns up to limit records for the pair, newest first.
func (s *Store) List(ctx context.Context, tenantID, entityType string, limit int) ([]reconcile.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []recordRow
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND entity_type = ?", tenantID, entityType).
		Order("started_at desc, id desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	out := make([]reconcile.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toRecord())
	}
	return out, nil
}
