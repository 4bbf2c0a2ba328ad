package config

import (
	"reflect"
	"strings"

	"drift-reconciler/core/archive"
	"drift-reconciler/core/database"
	"drift-reconciler/core/lock"
	"drift-reconciler/core/logger"
	"drift-reconciler/core/primary"
	"drift-reconciler/core/reconcile"
	"drift-reconciler/core/scheduler"
	"drift-reconciler/core/server"
	"drift-reconciler/core/storage"
	"drift-reconciler/core/telemetry"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the service.
// Each section is owned by the package that consumes it.
type Config struct {
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database is the Mirror database, which also stores reconciliation records.
	Database database.Config `mapstructure:"database"`
	// Primary is the authoritative document store.
	Primary primary.Config `mapstructure:"primary"`
	// Lock selects the distributed lock backend.
	Lock lock.Config `mapstructure:"lock"`
	// Storage holds the object storage receiving drift reports.
	Storage storage.Config `mapstructure:"storage"`
	// Archive controls drift report archiving.
	Archive archive.Config `mapstructure:"archive"`
	// Telemetry controls the InfluxDB export of records.
	Telemetry telemetry.Config `mapstructure:"telemetry"`
	// Reconcile holds the engine tunables.
	Reconcile reconcile.Config `mapstructure:"reconcile"`
	// Scheduler controls periodic reconciliation.
	Scheduler scheduler.Config `mapstructure:"scheduler"`
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env file if it exists
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// A missing .env is expected in production
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// 2. Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// 3. Map environment variables to nested keys (e.g. SERVER_PORT -> server.port)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues registers every tagged field with its default so AutomaticEnv can
// resolve nested keys.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	// If it's a pointer, get the element
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		// Skip if no tag
		if tag == "" {
			continue
		}

		// Build the key
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// If it's a nested struct, recurse
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		// Empty defaults are still set so the key is known to AutomaticEnv
		v.SetDefault(key, field.Tag.Get("default"))
	}
}
