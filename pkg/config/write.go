package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// WriteDefault writes a starter configuration file with all defaults to the
// given path, creating parent directories as needed.
//
// Refuses to overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	// Keys mirror the mapstructure tags so the written file round-trips
	// through Load.
	cfg := GetDefaultConfig()
	doc := map[string]any{
		"logging": map[string]any{
			"level":  cfg.Logging.Level,
			"output": cfg.Logging.Output,
		},
		"server": map[string]any{
			"port":             cfg.Server.Port,
			"backlog":          cfg.Server.Backlog,
			"pool_size":        cfg.Server.PoolSize,
			"max_pending":      cfg.Server.MaxPending,
			"accept_rate":      cfg.Server.AcceptRate,
			"accept_burst":     cfg.Server.AcceptBurst,
			"shutdown_timeout": cfg.Server.ShutdownTimeout.String(),
		},
		"handler": map[string]any{
			"type": cfg.Handler.Type,
			"echo": cfg.Handler.Echo,
		},
		"metrics": map[string]any{
			"enabled": cfg.Metrics.Enabled,
			"port":    cfg.Metrics.Port,
		},
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
