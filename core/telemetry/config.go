package telemetry

// Config holds the InfluxDB connection used to export reconciliation history.
type Config struct {
	Enabled bool   `mapstructure:"enabled" default:"false"`
	URL     string `mapstructure:"url" default:"http://localhost:8086"`
	Token   string `mapstructure:"token" default:""`
	Org     string `mapstructure:"org" default:"platform"`
	Bucket  string `mapstructure:"bucket" default:"reconciliation"`
}
