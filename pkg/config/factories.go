package config

import (
	"fmt"

	"github.com/marmos91/streamd/pkg/dispatch"
	"github.com/marmos91/streamd/pkg/handlers"
	"github.com/mitchellh/mapstructure"
)

// CreateHandler creates a connection handler based on configuration.
//
// This factory function uses the Type field to determine which handler to
// create, then decodes the type-specific configuration from the
// corresponding map and passes it to the handler's constructor.
//
// Supported types:
//   - "echo": one bounded read, echoed back, connection closed
//   - "discard": drains the connection until the peer closes it
//
// Returns the handler, or an error for unknown types or malformed options.
func CreateHandler(cfg *HandlerConfig) (dispatch.Handler, error) {
	switch cfg.Type {
	case "echo":
		return createEchoHandler(cfg.Echo)
	case "discard":
		return createDiscardHandler(cfg.Discard)
	default:
		return nil, fmt.Errorf("unknown handler type: %q", cfg.Type)
	}
}

// createEchoHandler decodes echo options and builds the echo handler.
func createEchoHandler(options map[string]any) (dispatch.Handler, error) {
	var handlerCfg handlers.EchoConfig
	if err := mapstructure.Decode(options, &handlerCfg); err != nil {
		return nil, fmt.Errorf("failed to decode echo handler config: %w", err)
	}

	if handlerCfg.BufferSize < 0 {
		return nil, fmt.Errorf("echo handler: buffer_size must be >= 0")
	}

	return handlers.NewEcho(handlerCfg), nil
}

// createDiscardHandler decodes discard options and builds the discard handler.
func createDiscardHandler(options map[string]any) (dispatch.Handler, error) {
	var handlerCfg handlers.DiscardConfig
	if err := mapstructure.Decode(options, &handlerCfg); err != nil {
		return nil, fmt.Errorf("failed to decode discard handler config: %w", err)
	}

	if handlerCfg.BufferSize < 0 {
		return nil, fmt.Errorf("discard handler: buffer_size must be >= 0")
	}

	return handlers.NewDiscard(handlerCfg), nil
}
