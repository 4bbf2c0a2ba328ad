package scheduler

import "time"

// Config controls periodic reconciliation.
type Config struct {
	// Enabled starts the scheduler with the HTTP server.
	Enabled bool `mapstructure:"enabled" default:"true"`
	// Interval between two sweeps over every (tenant, entity) pair.
	Interval time.Duration `mapstructure:"interval" default:"5m"`
	// Lookback is the window length reconciled on each sweep, ending now.
	Lookback time.Duration `mapstructure:"lookback" default:"1h"`
	// Concurrency bounds the attempts running at once.
	Concurrency int `mapstructure:"concurrency" default:"4"`
	// StartRate bounds attempts started per second. Zero disables the limit.
	StartRate float64 `mapstructure:"start_rate" default:"10"`
	// Tenants pins the tenant list; empty means discover tenants from Primary.
	Tenants []string `mapstructure:"tenants" default:""`
	// Entities restricts the entity types; empty means every registered one.
	Entities []string `mapstructure:"entities" default:""`
}
