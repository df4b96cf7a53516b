// Package infra contains technical adapters: zerolog logging, Prometheus
// and InfluxDB metrics sinks and the MQTT event publisher. These packages
// depend only on the interfaces defined in the core packages.
package infra
