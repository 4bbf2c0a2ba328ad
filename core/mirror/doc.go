// Package mirror implements reconcile.Mirror for relational read stores through gorm.
//
// One SQLAdapter serves one table. The table layout (id, tenant, creation time,
// optional status column and copied columns) comes from a Profile, so new entity
// types need no code here.
//
// All mutations are idempotent: Insert ignores rows that already exist, DeleteBatch
// ignores ids that are already gone, and Replace deletes and re-inserts inside
// one transaction.
package mirror
