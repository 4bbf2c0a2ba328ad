package reconcile

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a reconciliation attempt.
type Status string

const (
	// StatusInProgress marks an attempt that has started and not yet finished.
	StatusInProgress Status = "IN_PROGRESS"
	// StatusSuccess marks an attempt that completed, with or without drift.
	StatusSuccess Status = "SUCCESS"
	// StatusFailed marks an attempt that aborted or was reclaimed as abandoned.
	StatusFailed Status = "FAILED"
)

// IsTerminal reports whether the status can no longer change.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// DetectionStatus names the drift categories found by an attempt.
type DetectionStatus string

const (
	DetectionSuccess                           DetectionStatus = "SUCCESS"
	DetectionMissing                           DetectionStatus = "MISSING_RECORDS_DETECTED"
	DetectionDuplicate                         DetectionStatus = "DUPLICATE_DETECTED"
	DetectionStatusMismatch                    DetectionStatus = "STATUS_MISMATCH_DETECTED"
	DetectionMissingAndDuplicate               DetectionStatus = "MISSING_RECORDS_DETECTED_AND_DUPLICATE_DETECTED"
	DetectionMissingAndStatusMismatch          DetectionStatus = "MISSING_RECORDS_DETECTED_AND_STATUS_MISMATCH_DETECTED"
	DetectionDuplicateAndStatusMismatch        DetectionStatus = "DUPLICATE_DETECTED_AND_STATUS_MISMATCH_DETECTED"
	DetectionMissingDuplicateAndStatusMismatch DetectionStatus = "MISSING_RECORDS_DETECTED_AND_DUPLICATE_DETECTED_AND_STATUS_MISMATCH_DETECTED"
)

// Action names the repairs applied by an attempt.
type Action string

const (
	ActionNone                                Action = "NONE"
	ActionAddMissing                          Action = "ADD_MISSING"
	ActionRemoveDuplicates                    Action = "REMOVE_DUPLICATES"
	ActionStatusReconcile                     Action = "STATUS_RECONCILE"
	ActionAddMissingAndRemoveDuplicates       Action = "ADD_MISSING_AND_REMOVE_DUPLICATES"
	ActionAddMissingAndStatusReconcile        Action = "ADD_MISSING_AND_STATUS_RECONCILE"
	ActionRemoveDuplicatesAndStatusReconcile  Action = "REMOVE_DUPLICATES_AND_STATUS_RECONCILE"
	ActionAddMissingRemoveDuplicatesAndStatus Action = "ADD_MISSING_AND_REMOVE_DUPLICATES_AND_STATUS_RECONCILE"
)

// Window is a reconciled time range in epoch milliseconds.
type Window struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Validate checks that the window is well formed.
func (w Window) Validate() error {
	if w.Start < 0 || w.End < 0 {
		return fmt.Errorf("window bounds must be non-negative: [%d, %d]", w.Start, w.End)
	}
	if w.Start > w.End {
		return fmt.Errorf("window start %d is after window end %d", w.Start, w.End)
	}
	return nil
}

// WindowEndingAt returns the window of the given length that ends at t.
func WindowEndingAt(t time.Time, length time.Duration) Window {
	end := t.UnixMilli()
	return Window{Start: end - length.Milliseconds(), End: end}
}

// Record is the audit entry of a single reconciliation attempt.
//
// Records are values: transitions return a new Record that is handed to
// the RecordStore, which refuses to touch records that are already terminal.
type Record struct {
	ID              string          `json:"id"`
	TenantID        string          `json:"tenant_id"`
	EntityType      string          `json:"entity_type"`
	Status          Status          `json:"status"`
	WindowStart     int64           `json:"window_start"`
	WindowEnd       int64           `json:"window_end"`
	StartedAt       int64           `json:"started_at"`
	EndedAt         int64           `json:"ended_at"`
	DetectionStatus DetectionStatus `json:"detection_status,omitempty"`
	Action          Action          `json:"action,omitempty"`

	MissingCount   int    `json:"missing_count"`
	DuplicateCount int    `json:"duplicate_count"`
	MismatchCount  int    `json:"mismatch_count"`
	FailedRepairs  int    `json:"failed_repairs"`
	FailureReason  string `json:"failure_reason,omitempty"`
}

// NewRecord builds an in-progress record for the given pair and window.
func NewRecord(tenantID, entityType string, window Window, startedAt time.Time) Record {
	return Record{
		TenantID:    tenantID,
		EntityType:  entityType,
		Status:      StatusInProgress,
		WindowStart: window.Start,
		WindowEnd:   window.End,
		StartedAt:   startedAt.UnixMilli(),
	}
}

// Window returns the reconciled range of the record.
func (r Record) Window() Window {
	return Window{Start: r.WindowStart, End: r.WindowEnd}
}

// Finish returns the successful terminal form of r, classified by the drift found.
func (r Record) Finish(drift Drift, failedRepairs int, endedAt time.Time) Record {
	kind := drift.Kind()
	r.Status = StatusSuccess
	r.EndedAt = endedAt.UnixMilli()
	r.DetectionStatus = kind.DetectionStatus()
	r.Action = kind.Action()
	r.MissingCount = len(drift.Missing)
	r.DuplicateCount = len(drift.Extra)
	r.MismatchCount = len(drift.Mismatches)
	r.FailedRepairs = failedRepairs
	return r
}

// Fail returns the failed terminal form of r.
func (r Record) Fail(reason string, endedAt time.Time) Record {
	r.Status = StatusFailed
	r.EndedAt = endedAt.UnixMilli()
	r.FailureReason = reason
	return r
}

// Row is the canonical, store-neutral form of a single business record.
type Row struct {
	ID        string
	TenantID  string
	Status    string
	CreatedAt int64
	// Fields holds the remaining mirror columns keyed by column name.
	Fields map[string]any
}

// StatusPair holds the two sides of a status mismatch.
type StatusPair struct {
	Mirror  string `json:"mirror"`
	Primary string `json:"primary"`
}
