// Package logger builds the zap logger used across the service.
//
// Level selects the minimum level (debug switches to the development config
// with ISO8601 timestamps). Format selects json or console encoding.
//
// WithRayID attaches the request's ray id to a logger inside Fiber handlers so
// every line of a request, including the reconciliation it triggers, can be
// correlated.
//
//	log, _ := logger.New(&cfg.Log)
//	l := logger.WithRayID(log, c)
//	l.Error("Manual reconciliation failed", zap.Error(err))
package logger
