package mirror

import (
	"context"
	"errors"
	"fmt"

	"drift-reconciler/core/database"
	"drift-reconciler/core/reconcile"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLAdapter is a reconcile.Mirror over a single gorm table.
type SQLAdapter struct {
	db      *gorm.DB
	profile Profile
}

var _ reconcile.Mirror = (*SQLAdapter)(nil)

// NewSQLAdapter creates an adapter for the table described by profile.
func NewSQLAdapter(db *gorm.DB, profile Profile) (*SQLAdapter, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return &SQLAdapter{db: db, profile: profile.withDefaults()}, nil
}

// Profile returns the effective profile, defaults applied.
func (a *SQLAdapter) Profile() Profile {
	return a.profile
}

// Verify checks that every column the adapter touches exists.
func (a *SQLAdapter) Verify(ctx context.Context) error {
	return database.RequireColumns(a.db.WithContext(ctx), a.profile.Table, a.profile.AllColumns()...)
}

func (a *SQLAdapter) col(name string) clause.Column {
	return clause.Column{Name: name}
}

// tenantScope limits a query to one tenant's rows.
func (a *SQLAdapter) tenantScope(ctx context.Context, tenantID string) *gorm.DB {
	return a.db.WithContext(ctx).
		Table(a.profile.Table).
		Where(clause.Eq{Column: a.col(a.profile.TenantColumn), Value: tenantID})
}

func (a *SQLAdapter) windowScope(ctx context.Context, tenantID string, w reconcile.Window) *gorm.DB {
	created := a.col(a.profile.CreatedColumn)
	return a.tenantScope(ctx, tenantID).
		Where(clause.Gte{Column: created, Value: w.Start}).
		Where(clause.Lte{Column: created, Value: w.End})
}

func (a *SQLAdapter) IDsInWindow(ctx context.Context, tenantID string, w reconcile.Window) (reconcile.IDSet, error) {
	var ids []string
	if err := a.windowScope(ctx, tenantID, w).Pluck(a.profile.IDColumn, &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to load ids from %s: %w", a.profile.Table, err)
	}
	return reconcile.NewIDSet(ids...), nil
}

func (a *SQLAdapter) CountInWindow(ctx context.Context, tenantID string, w reconcile.Window) (int64, error) {
	var count int64
	if err := a.windowScope(ctx, tenantID, w).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", a.profile.Table, err)
	}
	return count, nil
}

type statusRow struct {
	ID     string `gorm:"column:row_id"`
	Status string `gorm:"column:row_status"`
}

func (a *SQLAdapter) RunningStatuses(ctx context.Context, tenantID string) (map[string]string, error) {
	out := make(map[string]string)
	if !a.profile.HasLifecycle() {
		return out, nil
	}

	running := make([]any, 0, len(a.profile.RunningStatuses))
	for _, s := range a.profile.RunningStatuses {
		running = append(running, s)
	}

	var rows []statusRow
	err := a.tenantScope(ctx, tenantID).
		Select("? AS row_id, ? AS row_status", a.col(a.profile.IDColumn), a.col(a.profile.StatusColumn)).
		Where(clause.IN{Column: a.col(a.profile.StatusColumn), Values: running}).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load running statuses from %s: %w", a.profile.Table, err)
	}
	for _, r := range rows {
		out[r.ID] = r.Status
	}
	return out, nil
}

// values maps a row onto the profile's columns. Missing fields are written as NULL.
func (a *SQLAdapter) values(row reconcile.Row) map[string]any {
	v := map[string]any{
		a.profile.IDColumn:      row.ID,
		a.profile.TenantColumn:  row.TenantID,
		a.profile.CreatedColumn: row.CreatedAt,
	}
	if a.profile.StatusColumn != "" {
		v[a.profile.StatusColumn] = row.Status
	}
	for _, c := range a.profile.Columns {
		if _, set := v[c]; set {
			continue
		}
		v[c] = row.Fields[c]
	}
	return v
}

func (a *SQLAdapter) rowScope(tx *gorm.DB, tenantID, id string) *gorm.DB {
	return tx.Table(a.profile.Table).
		Where(clause.Eq{Column: a.col(a.profile.TenantColumn), Value: tenantID}).
		Where(clause.Eq{Column: a.col(a.profile.IDColumn), Value: id})
}

// Insert writes row unless it is already present.
// The check and the write share a transaction but are not atomic without a unique
// key on (tenant, id); callers rely on the pair lock to serialize writers.
func (a *SQLAdapter) Insert(ctx context.Context, row reconcile.Row) error {
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := a.rowScope(tx, row.TenantID, row.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		return tx.Table(a.profile.Table).Create(a.values(row)).Error
	})
	if err != nil {
		return fmt.Errorf("failed to insert %s into %s: %w", row.ID, a.profile.Table, err)
	}
	return nil
}

// DeleteBatch removes ids in chunks inside one transaction.
func (a *SQLAdapter) DeleteBatch(ctx context.Context, tenantID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for start := 0; start < len(ids); start += a.profile.DeleteChunk {
			end := min(start+a.profile.DeleteChunk, len(ids))
			err := tx.Exec("DELETE FROM ? WHERE ? = ? AND ? IN ?",
				clause.Table{Name: a.profile.Table},
				a.col(a.profile.TenantColumn), tenantID,
				a.col(a.profile.IDColumn), ids[start:end],
			).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete %d rows from %s: %w", len(ids), a.profile.Table, err)
	}
	return nil
}

// UpdateStatus patches the status column of one row.
func (a *SQLAdapter) UpdateStatus(ctx context.Context, tenantID, id, status string) error {
	if a.profile.StatusColumn == "" {
		return reconcile.Permanent(errors.New("entity has no status column"))
	}
	err := a.rowScope(a.db.WithContext(ctx), tenantID, id).
		Update(a.profile.StatusColumn, status).Error
	if err != nil {
		return fmt.Errorf("failed to update status of %s in %s: %w", id, a.profile.Table, err)
	}
	return nil
}

// Replace overwrites the stored row with row.
func (a *SQLAdapter) Replace(ctx context.Context, row reconcile.Row) error {
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM ? WHERE ? = ? AND ? = ?",
			clause.Table{Name: a.profile.Table},
			a.col(a.profile.TenantColumn), row.TenantID,
			a.col(a.profile.IDColumn), row.ID,
		).Error; err != nil {
			return err
		}
		return tx.Table(a.profile.Table).Create(a.values(row)).Error
	})
	if err != nil {
		return fmt.Errorf("failed to replace %s in %s: %w", row.ID, a.profile.Table, err)
	}
	return nil
}
