// Package metrics defines the observability contract of the session engine.
// Sinks like PromSink and InfluxSink record resolution decisions, scoring
// calls and catalog reloads, and can be combined with NewMultiSink. The
// factory helpers return a MultiSink automatically when multiple sinks are
// configured.
package metrics
