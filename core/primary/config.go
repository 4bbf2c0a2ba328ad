package primary

// Config holds configuration for the Primary document store.
type Config struct {
	// URI is the MongoDB connection string.
	URI string `mapstructure:"uri" default:"mongodb://localhost:27017"`
	// Database is the database holding the business collections.
	Database string `mapstructure:"database" default:"harness"`
	// TimeoutSeconds bounds every operation issued through the client.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"10"`
}
