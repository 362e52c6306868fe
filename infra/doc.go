// Package infra holds the adapters behind the core interfaces: the synthetic
// simulation engine, metrics sinks, the MQTT publisher and the Sentry monitor.
package infra
