package dispatch

import (
	"time"

	"github.com/marmos91/streamd/internal/logger"
)

// worker runs the dequeue-and-dispatch loop for the lifetime of the
// server. The pool is fixed: workers are created once by New and exit only
// when the server is closed and the queue has drained.
func (s *Server) worker(id int) {
	defer s.workers.Done()

	for {
		s.mu.Lock()
		// The wait must be a loop, not a single re-check: one Signal may
		// wake a worker that loses the race for the queued connection, and
		// spurious wakeups are permitted. Returning empty-handed here
		// while a connection is queued would stall dispatch until the
		// next signal.
		for s.queue.Len() == 0 && !s.closed {
			s.cond.Wait()
		}
		conn, ok := s.queue.Dequeue()
		if ok {
			// Published under the lock so acceptor and worker updates
			// cannot reorder into a stale gauge value.
			s.metrics.SetQueueDepth(s.queue.Len())
		}
		s.mu.Unlock()

		if !ok {
			// Closed and drained.
			logger.Debug("worker %d exiting", id)
			return
		}

		s.dispatch(conn)
	}
}

// dispatch invokes the handler for one connection and releases the handle
// afterwards. A handler panic is recovered and, since the handler can no
// longer uphold its close-before-return contract, the connection is closed
// here. On a normal return the socket is left alone: closing it is the
// handler's responsibility.
func (s *Server) dispatch(conn *Conn) {
	s.active.Store(conn, struct{}{})
	s.metrics.RecordConnectionDispatched()
	s.metrics.SetActiveHandlers(int(s.inFlight.Add(1)))

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic in connection handler from %s: %v", conn.RemoteAddr(), r)
			conn.Close()
		}

		s.active.Delete(conn)
		s.metrics.RecordConnectionClosed()
		s.metrics.RecordHandlerDuration(time.Since(start))
		s.metrics.SetActiveHandlers(int(s.inFlight.Add(-1)))
	}()

	s.handler(s, conn, s.handlerCtx)
}
