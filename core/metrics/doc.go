// Package metrics defines the sinks receiving per tick cluster samples and
// the end of run summary. Sinks like PromSink and InfluxSink are registered
// by infra/metrics and can be combined with NewMultiSink. The factory helpers
// return a MultiSink automatically when multiple sinks are configured.
package metrics
