package scheduler

import (
	"context"
	"sort"
)

// TenantSource lists the tenants to reconcile.
type TenantSource interface {
	Tenants(ctx context.Context) ([]string, error)
}

// StaticTenants is a fixed tenant list.
type StaticTenants []string

func (s StaticTenants) Tenants(context.Context) ([]string, error) {
	return []string(s), nil
}

// Union merges several sources into a sorted, de-duplicated list.
type Union []TenantSource

func (u Union) Tenants(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	for _, src := range u {
		tenants, err := src.Tenants(ctx)
		if err != nil {
			return nil, err
		}
		for _, t := range tenants {
			seen[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}
