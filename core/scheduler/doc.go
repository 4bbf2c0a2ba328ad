// Package scheduler drives periodic reconciliation.
//
// Every Interval it reconciles each (tenant, entity) pair over the Lookback
// window ending now. Attempts run on a bounded errgroup and are started through
// a rate limiter so a large tenant list does not stampede the stores. Replicas
// may all run a scheduler; the engine lock and cool-down keep them from
// repeating each other's work.
package scheduler
