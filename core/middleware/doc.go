// Package middleware contains HTTP middleware for the Fiber application.
//
//   - auth: API key validation, with a skip hook for public paths such as /metrics.
//   - rayid: tags every request with a ray id, reusing an incoming X-Ray-ID header.
package middleware
