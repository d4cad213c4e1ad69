package config

import (
	"strings"
	"time"

	"github.com/marmos91/streamd/pkg/dispatch"
	"github.com/marmos91/streamd/pkg/handlers"
)

// Default values applied by ApplyDefaults.
const (
	DefaultPort            = 7420
	DefaultBacklog         = 128
	DefaultPoolSize        = 4
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMetricsPort     = 9090
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and
// environment variables to fill in any missing values.
//
// Default strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Handler-specific defaults are handled by the handler constructors
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyHandlerDefaults(&cfg.Handler)
	applyMetricsDefaults(&cfg.Metrics)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyServerDefaults sets dispatch server defaults.
func applyServerDefaults(cfg *dispatch.Config) {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Backlog == 0 {
		cfg.Backlog = DefaultBacklog
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = DefaultPoolSize
	}
	if cfg.AcceptRate > 0 && cfg.AcceptBurst == 0 {
		cfg.AcceptBurst = cfg.AcceptRate * 2
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// applyHandlerDefaults selects the echo handler when none is configured.
func applyHandlerDefaults(cfg *HandlerConfig) {
	if cfg.Type == "" {
		cfg.Type = "echo"
	}
	if cfg.Type == "echo" && cfg.Echo == nil {
		cfg.Echo = map[string]any{
			"buffer_size": handlers.DefaultEchoBufferSize,
		}
	}
}

// applyMetricsDefaults sets metrics server defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = DefaultMetricsPort
	}
}

// GetDefaultConfig returns a configuration with all defaults applied.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
