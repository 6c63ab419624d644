package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Config holds configuration for metrics collection.
type Config struct {
	// Enabled controls whether metrics collection is active.
	Enabled bool

	// Registry is the Prometheus registry to use. If nil, uses prometheus.DefaultRegisterer.
	Registry prometheus.Registerer

	// Namespace overrides the default "pipeflow" namespace for metrics.
	Namespace string

	// Labels are additional constant labels to add to all metrics.
	Labels prometheus.Labels
}

// DefaultConfig returns a default metrics configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		Registry:  prometheus.DefaultRegisterer,
		Namespace: "pipeflow",
		Labels:    nil,
	}
}

// FromConfig returns the registry a stream should report to: nil when
// disabled, DefaultRegistry for the default registerer, a fresh registry otherwise.
func FromConfig(config Config) *Registry {
	if !config.Enabled {
		return nil
	}
	if config.Registry == nil || config.Registry == prometheus.DefaultRegisterer {
		if config.Namespace == "" || config.Namespace == DefaultConfig().Namespace {
			return DefaultRegistry
		}
	}
	return NewRegistryWithConfig(config)
}
