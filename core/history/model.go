package history

import "drift-reconciler/core/reconcile"

// recordRow is the persisted form of reconcile.Record.
type recordRow struct {
	ID              string `gorm:"column:id;primaryKey;size:36"`
	AccountID       string `gorm:"column:account_id;size:128;not null;index:idx_reconciliation_pair,priority:1"`
	EntityType      string `gorm:"column:entity_type;size:64;not null;index:idx_reconciliation_pair,priority:2"`
	Status          string `gorm:"column:status;size:16;not null"`
	WindowStart     int64  `gorm:"column:window_start"`
	WindowEnd       int64  `gorm:"column:window_end"`
	StartedAt       int64  `gorm:"column:started_at;index:idx_reconciliation_pair,priority:3"`
	EndedAt         int64  `gorm:"column:ended_at"`
	DetectionStatus string `gorm:"column:detection_status;size:96"`
	Action          string `gorm:"column:action;size:96"`
	MissingCount    int    `gorm:"column:missing_count"`
	DuplicateCount  int    `gorm:"column:duplicate_count"`
	MismatchCount   int    `gorm:"column:mismatch_count"`
	FailedRepairs   int    `gorm:"column:failed_repairs"`
	FailureReason   string `gorm:"column:failure_reason;type:text"`
}

// TableName overrides the gorm default.
func (recordRow) TableName() string {
	return TableName
}

// TableName is the audit table holding one row per attempt.
const TableName = "reconciliation_records"

func fromRecord(r reconcile.Record) recordRow {
	return recordRow{
		ID:              r.ID,
		AccountID:       r.TenantID,
		EntityType:      r.EntityType,
		Status:          string(r.Status),
		WindowStart:     r.WindowStart,
		WindowEnd:       r.WindowEnd,
		StartedAt:       r.StartedAt,
		EndedAt:         r.EndedAt,
		DetectionStatus: string(r.DetectionStatus),
		Action:          string(r.Action),
		MissingCount:    r.MissingCount,
		DuplicateCount:  r.DuplicateCount,
		MismatchCount:   r.MismatchCount,
		FailedRepairs:   r.FailedRepairs,
		FailureReason:   r.FailureReason,
	}
}

func (m recordRow) toRecord() reconcile.Record {
	return reconcile.Record{
		ID:              m.ID,
		TenantID:        m.AccountID,
		EntityType:      m.EntityType,
		Status:          reconcile.Status(m.Status),
		WindowStart:     m.WindowStart,
		WindowEnd:       m.WindowEnd,
		StartedAt:       m.StartedAt,
		EndedAt:         m.EndedAt,
		DetectionStatus: reconcile.DetectionStatus(m.DetectionStatus),
		Action:          reconcile.Action(m.Action),
		MissingCount:    m.MissingCount,
		DuplicateCount:  m.DuplicateCount,
		MismatchCount:   m.MismatchCount,
		FailedRepairs:   m.FailedRepairs,
		FailureReason:   m.FailureReason,
	}
}
