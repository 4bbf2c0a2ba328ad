// Package database opens the relational Mirror store and inspects its schema.
//
// It wraps GORM so that the rest of the service never builds DSNs itself.
// MySQL is the production driver; sqlite serves local runs and tests.
//
// # Connect
//
// Connect opens the configured driver, sizes the connection pool and pings the
// server once before returning.
//
// # Schema Inspection
//
// GetTableColumns lists a table's columns for either dialect. The mirror adapters
// use it to verify at startup that every column they write exists.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	columns, err := database.GetTableColumns(db, "pipeline_execution_summary")
package database
