package lock

import "time"

// Config holds configuration for the distributed lock backend.
type Config struct {
	// Driver selects the backend: "redis" for multi-replica deployments, "memory" for a single process.
	Driver string `mapstructure:"driver" default:"memory"`
	// Address is the Redis host:port.
	Address string `mapstructure:"address" default:"localhost:6379"`
	// Password is the Redis password.
	Password string `mapstructure:"password" default:""`
	// DB is the Redis logical database.
	DB int `mapstructure:"db" default:"0"`
	// RetryInterval is the polling interval while waiting for a held lock.
	RetryInterval time.Duration `mapstructure:"retry_interval" default:"100ms"`
}

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)
