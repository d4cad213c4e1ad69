package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/streamd/pkg/dispatch"
	"github.com/spf13/viper"
)

// Config represents the complete streamd configuration.
//
// This structure captures all configurable aspects of the dispatch server:
//   - Logging configuration
//   - Dispatch server settings (port, backlog, pool size, rate limits)
//   - Handler selection and handler-specific configuration
//   - Metrics server settings
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (STREAMD_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
//
// Handler Configuration Pattern:
// Each handler defines its own configuration type and factory function. The
// Config struct contains type-specific sections (e.g., handler.echo) and
// only the section matching the selected type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains the dispatch server settings.
	// Uses the dispatch.Config type directly to avoid duplication.
	Server dispatch.Config `mapstructure:"server"`

	// Handler specifies the connection handler type and type-specific
	// configuration
	Handler HandlerConfig `mapstructure:"handler"`

	// Metrics contains metrics server settings
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// HandlerConfig specifies connection handler configuration.
//
// The Type field determines which handler is used. Only the corresponding
// type-specific configuration section is used.
type HandlerConfig struct {
	// Type specifies which connection handler to use
	// Valid values: echo, discard
	Type string `mapstructure:"type" validate:"required,oneof=echo discard"`

	// Echo contains echo-specific configuration
	// Only used when Type = "echo"
	Echo map[string]any `mapstructure:"echo"`

	// Discard contains discard-specific configuration
	// Only used when Type = "discard"
	Discard map[string]any `mapstructure:"discard"`
}

// MetricsConfig contains metrics server settings.
type MetricsConfig struct {
	// Enabled controls whether Prometheus metrics are collected and served
	Enabled bool `mapstructure:"enabled"`

	// Port is the HTTP port the metrics server listens on
	Port int `mapstructure:"port" validate:"min=0,max=65535"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (STREAMD_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns the loaded and validated configuration, or an error describing
// what failed.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the STREAMD_ prefix and underscores
	// Example: STREAMD_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("STREAMD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/streamd/config.{yaml,toml}
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is acceptable - use defaults
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "streamd")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "streamd")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	path := GetDefaultConfigPath()
	_, err := os.Stat(path)
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for the
// init command).
func GetConfigDir() string {
	return getConfigDir()
}
