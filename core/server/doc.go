// Package server holds the HTTP server configuration.
//
// The start command builds the Fiber app from this Config: the listen port,
// the API key guarding every route, and the public paths (health and metrics)
// that bypass it.
package server
