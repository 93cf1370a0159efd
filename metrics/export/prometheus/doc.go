// Package prometheus renders engine metrics in Prometheus text exposition
// format without a client library dependency.
//
// [New] accepts any [Source], typically a *storeauth.Engine, and
// [Exporter.Handler] serves the text on each scrape. Counter names are
// prefixed storeauth_*_total; the single histogram is
// storeauth_authorize_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
