// Package metrics defines the interfaces used to observe engine decisions.
// MetricsSink records assignment outcomes; sinks may also implement the
// optional recorder interfaces for routes, quotes, maintenance alerts and
// decision timings. Sinks are built from configuration through the factory
// registry and combined with NewMultiSink when several are configured.
package metrics
