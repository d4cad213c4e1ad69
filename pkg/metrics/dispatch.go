package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DispatchMetrics provides observability for the connection dispatcher.
//
// Implementations collect metrics about connection lifecycle, queue depth,
// and handler execution. The interface is optional - if not provided to the
// dispatch server, a no-op implementation is used with zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	m := metrics.NewDispatchMetrics()
//	srv, err := dispatch.New(cfg, handler, nil, m)
//
//	// Without metrics (no-op)
//	srv, err := dispatch.New(cfg, handler, nil, nil)
type DispatchMetrics interface {
	// RecordConnectionAccepted increments the total accepted connections counter.
	RecordConnectionAccepted()

	// RecordConnectionDispatched increments the counter of connections
	// handed to a worker.
	RecordConnectionDispatched()

	// RecordConnectionClosed increments the counter of connections whose
	// handler has returned.
	RecordConnectionClosed()

	// RecordHandlerDuration records how long a handler ran for one connection.
	RecordHandlerDuration(duration time.Duration)

	// SetQueueDepth updates the current number of connections waiting for a worker.
	SetQueueDepth(depth int)

	// SetActiveHandlers updates the number of workers currently running a handler.
	SetActiveHandlers(count int)
}

// dispatchMetrics is the Prometheus implementation of DispatchMetrics.
type dispatchMetrics struct {
	connectionsAccepted   prometheus.Counter
	connectionsDispatched prometheus.Counter
	connectionsClosed     prometheus.Counter
	handlerDuration       prometheus.Histogram
	queueDepth            prometheus.Gauge
	activeHandlers        prometheus.Gauge
}

// NewDispatchMetrics creates a new Prometheus-backed DispatchMetrics instance.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry
// not called).
func NewDispatchMetrics() DispatchMetrics {
	if !IsEnabled() {
		return NoopDispatchMetrics()
	}

	reg := GetRegistry()

	return &dispatchMetrics{
		connectionsAccepted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "streamd_connections_accepted_total",
				Help: "Total number of connections accepted",
			},
		),
		connectionsDispatched: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "streamd_connections_dispatched_total",
				Help: "Total number of connections handed to a worker",
			},
		),
		connectionsClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "streamd_connections_closed_total",
				Help: "Total number of connections whose handler has returned",
			},
		),
		handlerDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "streamd_handler_duration_seconds",
				Help: "Duration of connection handlers in seconds",
				Buckets: []float64{
					0.001, // 1ms
					0.005, // 5ms
					0.01,  // 10ms
					0.05,  // 50ms
					0.1,   // 100ms
					0.5,   // 500ms
					1.0,   // 1s
					5.0,   // 5s
					30.0,  // 30s
				},
			},
		),
		queueDepth: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "streamd_queue_depth",
				Help: "Current number of connections waiting for a worker",
			},
		),
		activeHandlers: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "streamd_active_handlers",
				Help: "Current number of workers running a handler",
			},
		),
	}
}

func (m *dispatchMetrics) RecordConnectionAccepted()   { m.connectionsAccepted.Inc() }
func (m *dispatchMetrics) RecordConnectionDispatched() { m.connectionsDispatched.Inc() }
func (m *dispatchMetrics) RecordConnectionClosed()     { m.connectionsClosed.Inc() }

func (m *dispatchMetrics) RecordHandlerDuration(duration time.Duration) {
	m.handlerDuration.Observe(duration.Seconds())
}

func (m *dispatchMetrics) SetQueueDepth(depth int) {
	m.queueDepth.Set(float64(depth))
}

func (m *dispatchMetrics) SetActiveHandlers(count int) {
	m.activeHandlers.Set(float64(count))
}

// noopDispatchMetrics is a no-op implementation of DispatchMetrics with zero overhead.
type noopDispatchMetrics struct{}

// NoopDispatchMetrics returns a DispatchMetrics that records nothing.
func NoopDispatchMetrics() DispatchMetrics {
	return noopDispatchMetrics{}
}

func (noopDispatchMetrics) RecordConnectionAccepted()           {}
func (noopDispatchMetrics) RecordConnectionDispatched()         {}
func (noopDispatchMetrics) RecordConnectionClosed()             {}
func (noopDispatchMetrics) RecordHandlerDuration(time.Duration) {}
func (noopDispatchMetrics) SetQueueDepth(int)                   {}
func (noopDispatchMetrics) SetActiveHandlers(int)               {}
