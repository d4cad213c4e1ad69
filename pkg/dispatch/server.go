package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/streamd/internal/fifo"
	"github.com/marmos91/streamd/internal/logger"
	"github.com/marmos91/streamd/internal/ratelimiter"
	"github.com/marmos91/streamd/pkg/metrics"
)

// ErrServerClosed is returned by AcceptOnce and Serve after Close has been
// called on the server.
var ErrServerClosed = errors.New("dispatch: server closed")

// Config holds configuration parameters for the dispatch server.
//
// Zero values are replaced with defaults by New.
type Config struct {
	// Port is the TCP port to listen on. 0 lets the OS pick a free port,
	// which is mainly useful in tests.
	Port int `mapstructure:"port" validate:"min=0,max=65535"`

	// Backlog is the accept backlog passed to listen(2).
	// If 0, defaults to 128.
	Backlog int `mapstructure:"backlog" validate:"min=0"`

	// PoolSize is the fixed number of workers servicing connections.
	// Workers are created once at initialization and never resized.
	// If 0, defaults to 4.
	PoolSize int `mapstructure:"pool_size" validate:"min=0"`

	// MaxPending is an advisory cap on the number of connections waiting
	// for a worker. The queue is unbounded and no connection is ever
	// dropped; crossing the cap only logs a warning so operators can spot
	// an undersized pool. 0 disables the check.
	MaxPending int `mapstructure:"max_pending" validate:"min=0"`

	// AcceptRate limits how many connections per second Serve accepts.
	// 0 means unlimited. AcceptOnce is never rate limited; the limit
	// applies only to the Serve loop.
	AcceptRate uint `mapstructure:"accept_rate"`

	// AcceptBurst is the burst capacity for AcceptRate.
	// If 0 and AcceptRate > 0, defaults to twice AcceptRate.
	AcceptBurst uint `mapstructure:"accept_burst"`

	// ShutdownTimeout bounds how long Close waits for workers to finish
	// in-flight handlers before force-closing their connections.
	// If 0, defaults to 30s.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`
}

// applyDefaults fills in zero values with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Backlog <= 0 {
		c.Backlog = 128
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 4
	}
	if c.AcceptRate > 0 && c.AcceptBurst == 0 {
		c.AcceptBurst = c.AcceptRate * 2
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
}

// validate checks that the configuration is usable.
func (c *Config) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 0-65535", c.Port)
	}
	if c.PoolSize < 1 {
		return fmt.Errorf("invalid PoolSize %d: must be >= 1", c.PoolSize)
	}
	if c.Backlog < 1 {
		return fmt.Errorf("invalid Backlog %d: must be >= 1", c.Backlog)
	}
	return nil
}

// Server dispatches accepted connections to a fixed worker pool.
//
// All inter-thread coordination goes through a single mutex/condition pair
// protecting a single FIFO queue - there is no per-connection lock. The
// handler, handler context, and listener are written once at
// initialization and read-only afterwards.
type Server struct {
	config     Config
	listener   net.Listener
	handler    Handler
	handlerCtx any

	// mu and cond guard queue and closed. cond wakes idle workers when a
	// connection is enqueued or shutdown begins.
	mu     sync.Mutex
	cond   *sync.Cond
	queue  *fifo.Queue[*Conn]
	closed bool

	// workers joins the pool during Close.
	workers sync.WaitGroup

	// active tracks connections currently inside a handler, so Close can
	// force-close them when the shutdown timeout expires.
	active sync.Map

	// inFlight counts handlers currently running.
	inFlight atomic.Int32

	limiter   *ratelimiter.RateLimiter
	metrics   metrics.DispatchMetrics
	closeOnce sync.Once
}

// New binds and listens on the configured port and starts the worker pool.
//
// The handler context hctx is opaque and caller-owned; it is passed to
// every handler invocation unchanged. The metrics collector may be nil,
// in which case nothing is recorded.
//
// Socket setup failure is returned as an error; it is the caller's choice
// whether to terminate, retry, or log and continue.
func New(config Config, handler Handler, hctx any, m metrics.DispatchMetrics) (*Server, error) {
	config.applyDefaults()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid dispatch config: %w", err)
	}
	if handler == nil {
		return nil, errors.New("dispatch: handler must not be nil")
	}
	if m == nil {
		m = metrics.NoopDispatchMetrics()
	}

	listener, err := listenTCP(config.Port, config.Backlog)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:     config,
		listener:   listener,
		handler:    handler,
		handlerCtx: hctx,
		queue:      fifo.New[*Conn](),
		metrics:    m,
	}
	s.cond = sync.NewCond(&s.mu)

	if config.AcceptRate > 0 {
		s.limiter = ratelimiter.New(config.AcceptRate, config.AcceptBurst)
		logger.Debug("accept rate limit: %d/s (burst %d)", config.AcceptRate, config.AcceptBurst)
	}

	s.workers.Add(config.PoolSize)
	for i := 0; i < config.PoolSize; i++ {
		go s.worker(i)
	}

	logger.Info("dispatch server listening on %s (pool size %d, backlog %d)",
		listener.Addr(), config.PoolSize, config.Backlog)

	return s, nil
}

// AcceptOnce performs exactly one blocking accept-and-enqueue cycle.
//
// On success the accepted connection has been wrapped into a Conn,
// published to the queue, and one waiting worker has been signaled. The
// method does not loop; the caller is responsible for invoking it
// repeatedly (or for using Serve) to keep accepting connections.
//
// Returns ErrServerClosed once the server has been closed, or a wrapped
// accept error that the caller may treat as transient.
func (s *Server) AcceptOnce() error {
	nc, err := s.listener.Accept()
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return ErrServerClosed
		}
		return fmt.Errorf("accept connection: %w", err)
	}

	conn := &Conn{nc: nc}

	s.mu.Lock()
	if s.closed {
		// Closed between Accept returning and the enqueue. The connection
		// was never published, so it is still ours to release.
		s.mu.Unlock()
		conn.Close()
		return ErrServerClosed
	}
	s.queue.Enqueue(conn)
	depth := s.queue.Len()
	s.metrics.SetQueueDepth(depth)
	s.cond.Signal()
	s.mu.Unlock()

	s.metrics.RecordConnectionAccepted()
	if s.config.MaxPending > 0 && depth > s.config.MaxPending {
		logger.Warn("pending connections (%d) exceed max_pending (%d)", depth, s.config.MaxPending)
	}
	logger.Debug("connection accepted from %s (queued: %d)", nc.RemoteAddr(), depth)

	return nil
}

// Serve accepts connections in a loop until the context is cancelled or
// the server is closed.
//
// Transient accept errors are logged and the loop continues, matching the
// listener behavior of long-running servers. If an accept rate limit is
// configured, Serve waits for a token before each accept.
//
// Returns nil when the context is cancelled, ErrServerClosed when Close
// ended the loop.
func (s *Server) Serve(ctx context.Context) error {
	// The watcher exits with Serve; without the done channel it would
	// linger until the caller's context is cancelled.
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			_ = s.listener.Close()
		case <-done:
		}
	}()

	for {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil
			}
		}

		if err := s.AcceptOnce(); err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}

			if errors.Is(err, ErrServerClosed) {
				return ErrServerClosed
			}

			logger.Debug("error accepting connection: %v", err)
		}
	}
}

// Close shuts the server down: it stops the listener, wakes all idle
// workers, lets the pool drain the connections still queued, and joins the
// workers.
//
// Close waits up to the configured ShutdownTimeout (bounded further by
// ctx) for in-flight handlers to return. After that it force-closes the
// remaining connections and returns an error; the blocked handlers then
// fail their I/O and exit on their own.
//
// Safe to call multiple times; only the first call does any work.
func (s *Server) Close(ctx context.Context) error {
	var closeErr error

	s.closeOnce.Do(func() {
		logger.Info("dispatch server shutting down")

		if s.config.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
			defer cancel()
		}

		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			closeErr = fmt.Errorf("close listener: %w", err)
		}

		s.mu.Lock()
		s.closed = true
		s.cond.Broadcast()
		s.mu.Unlock()

		done := make(chan struct{})
		go func() {
			s.workers.Wait()
			close(done)
		}()

		select {
		case <-done:
			logger.Info("dispatch server stopped: all workers joined")

		case <-ctx.Done():
			remaining := s.inFlight.Load()
			logger.Warn("shutdown timeout exceeded: %d handler(s) still running - forcing connection closure",
				remaining)
			s.forceCloseActive()
			closeErr = errors.Join(closeErr,
				fmt.Errorf("dispatch shutdown timeout: %d connections force-closed", remaining))
		}
	})

	return closeErr
}

// forceCloseActive closes every connection currently inside a handler.
// The handlers' blocking reads and writes fail immediately afterwards.
func (s *Server) forceCloseActive() {
	s.active.Range(func(key, _ any) bool {
		conn := key.(*Conn)
		logger.Debug("force-closing connection from %s", conn.RemoteAddr())
		conn.Close()
		return true
	})
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// PoolSize returns the configured number of workers.
func (s *Server) PoolSize() int {
	return s.config.PoolSize
}

// QueueDepth returns the number of connections waiting for a worker.
func (s *Server) QueueDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}
