package metrics

import "github.com/kilianp07/lddl/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks" koanf:"sinks"`
	// PrometheusAddr exposes the default registry on /metrics when set.
	PrometheusAddr string `json:"prometheus_addr" koanf:"prometheus_addr"`
}
