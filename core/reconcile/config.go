package reconcile

import "time"

// Config holds the tunables of the reconciliation engine.
type Config struct {
	// CoolDown is the minimum spacing between two attempts for the same window,
	// and the age after which an in-progress record counts as abandoned.
	CoolDown time.Duration `mapstructure:"cool_down" default:"15m"`
	// LockWaitTimeout bounds how long an attempt waits for the pair lock.
	LockWaitTimeout time.Duration `mapstructure:"lock_wait_timeout" default:"1m"`
	// LockLease is how long the pair lock is held before it expires on its own.
	LockLease time.Duration `mapstructure:"lock_lease" default:"5m"`
	// MaxIORetries is the number of tries per store call.
	MaxIORetries int `mapstructure:"max_io_retries" default:"3"`
	// RetryInitialBackoff is the first wait between tries. Zero disables backoff.
	RetryInitialBackoff time.Duration `mapstructure:"retry_initial_backoff" default:"0s"`
	// RetryMaxBackoff caps the wait between tries.
	RetryMaxBackoff time.Duration `mapstructure:"retry_max_backoff" default:"2s"`
	// LockRenewInterval refreshes the lease while an attempt runs. Zero disables renewal.
	LockRenewInterval time.Duration `mapstructure:"lock_renew_interval" default:"0s"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		CoolDown:        15 * time.Minute,
		LockWaitTimeout: time.Minute,
		LockLease:       5 * time.Minute,
		MaxIORetries:    3,
		RetryMaxBackoff: 2 * time.Second,
	}
}

// RetryPolicy derives the store retry policy from the configuration.
func (c Config) RetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    c.MaxIORetries,
		InitialBackoff: c.RetryInitialBackoff,
		MaxBackoff:     c.RetryMaxBackoff,
	}
}
