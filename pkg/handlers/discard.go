package handlers

import (
	"github.com/marmos91/streamd/internal/logger"
	"github.com/marmos91/streamd/pkg/dispatch"
)

// DiscardConfig configures the discard handler.
type DiscardConfig struct {
	// BufferSize is the receive buffer size per read.
	// If 0, defaults to DefaultEchoBufferSize.
	BufferSize int `mapstructure:"buffer_size"`
}

// NewDiscard returns a handler that drains the connection until the peer
// closes it, dropping everything received. Useful as a sink for load
// testing the dispatch path.
func NewDiscard(config DiscardConfig) dispatch.Handler {
	size := config.BufferSize
	if size <= 0 {
		size = DefaultEchoBufferSize
	}

	return func(srv *dispatch.Server, c *dispatch.Conn, hctx any) {
		defer c.Close()

		buf := make([]byte, size)
		total := 0
		for {
			n := c.Read(buf)
			if n == 0 {
				break
			}
			total += n
		}

		logger.Debug("discarded %d bytes from %s", total, c.RemoteAddr())
	}
}
