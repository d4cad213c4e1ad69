package dispatch

import "net"

// Conn represents one accepted stream connection.
//
// A Conn is owned by exactly one component at a time: the acceptor creates
// it, the queue holds it, and the worker that dequeues it passes it to the
// handler. The handler must Close the Conn before returning; the dispatch
// layer releases only its own bookkeeping for the handle afterwards.
type Conn struct {
	nc net.Conn
}

// Read performs a single bounded receive into p.
//
// It returns the number of bytes received, which may be less than len(p);
// there is no internal retry to fill the buffer. Callers needing a fixed
// amount of data must loop themselves.
//
// Returns 0 when the connection is nil, p is empty, the peer has closed
// the connection, or any error occurs.
func (c *Conn) Read(p []byte) int {
	if c == nil || c.nc == nil || len(p) == 0 {
		return 0
	}

	n, _ := c.nc.Read(p)
	return n
}

// Write performs a single bounded send of p.
//
// It is fire-and-forget: no error is reported, partial writes are not
// retried. A nil connection or empty buffer makes the call a no-op.
func (c *Conn) Write(p []byte) {
	if c == nil || c.nc == nil || len(p) == 0 {
		return
	}

	_, _ = c.nc.Write(p)
}

// Close closes the underlying socket. No-op on a nil connection.
func (c *Conn) Close() {
	if c == nil || c.nc == nil {
		return
	}

	_ = c.nc.Close()
}

// RemoteAddr returns the peer address, or nil on a nil connection.
func (c *Conn) RemoteAddr() net.Addr {
	if c == nil || c.nc == nil {
		return nil
	}

	return c.nc.RemoteAddr()
}

// NetConn exposes the underlying net.Conn for handlers that need deadlines
// or explicit error reporting beyond the Read/Write primitives.
func (c *Conn) NetConn() net.Conn {
	if c == nil {
		return nil
	}

	return c.nc
}
