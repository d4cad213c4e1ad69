// Package metrics provides Prometheus metrics collection for streamd.
//
// All metrics are optional - if the registry is not initialized, components
// fall back to no-op implementations with zero overhead.
//
// Usage:
//
//	// Initialize global registry (typically in main.go)
//	metrics.InitRegistry()
//
//	// Create metrics instances for components
//	dispatchMetrics := metrics.NewDispatchMetrics()
//
//	// Or use nil for no-op behavior
//	srv, err := dispatch.New(cfg, handler, nil, nil) // No metrics
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// registry is the global Prometheus registry for all streamd metrics.
	// Write-once via registryOnce, read-many afterwards.
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry.
//
// Must be called before creating metrics instances. Safe to call multiple
// times - subsequent calls are ignored. If never called, GetRegistry()
// returns nil and constructors return no-op implementations.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the global Prometheus registry, or nil if
// InitRegistry() has not been called (metrics disabled).
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled returns true if metrics collection is enabled.
func IsEnabled() bool {
	return GetRegistry() != nil
}
