package archive

// Config controls drift report archiving.
type Config struct {
	// Enabled turns the archive observer on.
	Enabled bool `mapstructure:"enabled" default:"false"`
	// Prefix is the object key prefix inside the storage bucket.
	Prefix string `mapstructure:"prefix" default:"drift-reports"`
	// OnlyDrift skips clean attempts.
	OnlyDrift bool `mapstructure:"only_drift" default:"true"`
}
