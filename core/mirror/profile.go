package mirror

import (
	"errors"
	"slices"
)

// Profile describes how one entity type is laid out in the Mirror.
type Profile struct {
	// Table is the mirror table name.
	Table string
	// IDColumn holds the Primary id. Defaults to "id".
	IDColumn string
	// TenantColumn holds the tenant id. Defaults to "account_id".
	TenantColumn string
	// CreatedColumn holds the creation time in epoch millis. Defaults to "created_at".
	CreatedColumn string
	// StatusColumn holds the lifecycle status; empty for entities without one.
	StatusColumn string
	// RunningStatuses are the non-terminal values of StatusColumn.
	RunningStatuses []string
	// Columns are the remaining columns, filled from Row.Fields.
	Columns []string
	// DeleteChunk bounds the number of ids per DELETE statement. Defaults to 500.
	DeleteChunk int
}

func (p Profile) withDefaults() Profile {
	if p.IDColumn == "" {
		p.IDColumn = "id"
	}
	if p.TenantColumn == "" {
		p.TenantColumn = "account_id"
	}
	if p.CreatedColumn == "" {
		p.CreatedColumn = "created_at"
	}
	if p.DeleteChunk <= 0 {
		p.DeleteChunk = 500
	}
	return p
}

// Validate checks that the profile can be used.
func (p Profile) Validate() error {
	if p.Table == "" {
		return errors.New("mirror profile: table is required")
	}
	if len(p.RunningStatuses) > 0 && p.StatusColumn == "" {
		return errors.New("mirror profile: running statuses need a status column")
	}
	return nil
}

// HasLifecycle reports whether rows carry a running/terminal status.
func (p Profile) HasLifecycle() bool {
	return p.StatusColumn != "" && len(p.RunningStatuses) > 0
}

// AllColumns lists every column the adapter reads or writes.
func (p Profile) AllColumns() []string {
	cols := []string{p.IDColumn, p.TenantColumn, p.CreatedColumn}
	if p.StatusColumn != "" {
		cols = append(cols, p.StatusColumn)
	}
	for _, c := range p.Columns {
		if !slices.Contains(cols, c) {
			cols = append(cols, c)
		}
	}
	return cols
}
