// Package dispatch provides a TCP connection dispatcher: a single accept
// path feeding a fixed pool of workers through a mutex/condition guarded
// FIFO queue.
//
// The server accepts inbound stream connections, wraps each one into a Conn
// handle, and publishes it to the queue. Each worker runs an identical
// dequeue-and-dispatch loop for the lifetime of the server, invoking the
// caller-supplied Handler synchronously with the server, the connection,
// and an opaque context value.
//
// Ownership of a Conn is exclusive at every point in time: it passes from
// the acceptor to the queue, then to whichever worker dequeues it, then to
// the handler. Connections are dispatched in FIFO order relative to
// acceptance; which worker services which connection is unspecified.
//
// Workers perform blocking I/O directly, so a small number of slow peers
// can occupy the entire pool. That head-of-line blocking is an inherent
// property of the fixed-pool design and is documented and tested rather
// than hidden behind timeouts.
package dispatch
