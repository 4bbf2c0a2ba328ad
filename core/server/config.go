package server

// Config holds configuration for the HTTP server.
type Config struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey is the secret key required to access the API. Empty disables auth.
	ApiKey string `mapstructure:"api_key" default:""`
	// MetricsPath exposes Prometheus metrics without authentication.
	MetricsPath string `mapstructure:"metrics_path" default:"/metrics"`
	// ShutdownTimeoutSeconds bounds graceful shutdown.
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds" default:"30"`
}

// IsPublic reports whether path is served without an API key.
func (c Config) IsPublic(path string) bool {
	return path == "/health" || (c.MetricsPath != "" && path == c.MetricsPath)
}
