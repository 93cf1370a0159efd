// Package otel provides OpenTelemetry metric exporter bindings for engine
// counters and the authorize latency histogram.
//
// [New] registers an Int64ObservableCounter for each counter and an
// Int64ObservableGauge per histogram bucket. A single callback reads
// MetricsSnapshot on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
