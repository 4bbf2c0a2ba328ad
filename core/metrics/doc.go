// Package metrics exports reconciliation outcomes to Prometheus.
//
// Recorder is registered on the engine as an Observer. Tenants are not used
// as labels to keep cardinality bounded.
package metrics
