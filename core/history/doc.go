// Package history persists the append-only audit trail of reconciliation attempts.
//
// Store implements reconcile.RecordStore on top of gorm. Records are inserted
// once and updated once; Update only matches rows that are still IN_PROGRESS,
// so a terminal record can never be overwritten.
package history
