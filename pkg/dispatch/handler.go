package dispatch

// Handler services one connection. It is invoked synchronously on the
// worker that dequeued the connection, with the owning server, the
// connection handle, and the opaque context value supplied at
// initialization. No other worker accesses the same Conn concurrently.
//
// The handler is expected to fully service the connection and to Close it
// before returning. If the handler returns without closing, the underlying
// socket leaks: the dispatch layer releases the handle but not the socket.
// The one exception is a handler panic, which the worker recovers from and
// closes the connection itself.
//
// No result value flows back from the handler to the dispatch layer.
type Handler func(srv *Server, c *Conn, hctx any)
