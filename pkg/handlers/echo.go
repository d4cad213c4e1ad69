// Package handlers provides ready-made connection handlers for the
// dispatch server.
package handlers

import (
	"github.com/marmos91/streamd/internal/logger"
	"github.com/marmos91/streamd/pkg/dispatch"
)

// DefaultEchoBufferSize is the receive buffer size used when EchoConfig
// leaves it unset.
const DefaultEchoBufferSize = 256

// EchoConfig configures the echo handler.
type EchoConfig struct {
	// BufferSize is the maximum number of bytes read and echoed back per
	// connection. If 0, defaults to DefaultEchoBufferSize.
	BufferSize int `mapstructure:"buffer_size"`
}

// NewEcho returns a handler that performs one bounded read, writes the
// received bytes back unmodified, and closes the connection.
func NewEcho(config EchoConfig) dispatch.Handler {
	size := config.BufferSize
	if size <= 0 {
		size = DefaultEchoBufferSize
	}

	return func(srv *dispatch.Server, c *dispatch.Conn, hctx any) {
		defer c.Close()

		buf := make([]byte, size)
		n := c.Read(buf)
		if n == 0 {
			return
		}

		c.Write(buf[:n])
		logger.Debug("echoed %d bytes to %s", n, c.RemoteAddr())
	}
}
