// Package telemetry exports reconciliation records to InfluxDB as a time series.
package telemetry
