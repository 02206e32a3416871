package internal

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects request and connection counters. All methods are safe
// to call on a nil *Metrics, which records nothing.
type Metrics struct {
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	connections  prometheus.Counter
	acceptErrors prometheus.Counter
	truncated    prometheus.Counter
	panics       prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meract",
			Name:      "requests_total",
			Help:      "Dispatched requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "meract",
			Name:      "request_duration_seconds",
			Help:      "Time spent resolving a request.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		connections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "meract",
			Name:      "connections_total",
			Help:      "Connections accepted by the socket server.",
		}),
		acceptErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "meract",
			Name:      "accept_errors_total",
			Help:      "Failed accept calls on the socket server.",
		}),
		truncated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "meract",
			Name:      "truncated_requests_total",
			Help:      "Requests that filled the read buffer before the header terminator.",
		}),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "meract",
			Name:      "handler_panics_total",
			Help:      "Panics recovered while handling a request.",
		}),
	}

	reg.MustRegister(m.requests, m.duration, m.connections, m.acceptErrors, m.truncated, m.panics)
	return m
}

func (m *Metrics) observeRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) connectionAccepted() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) acceptFailed() {
	if m != nil {
		m.acceptErrors.Inc()
	}
}

func (m *Metrics) requestTruncated() {
	if m != nil {
		m.truncated.Inc()
	}
}

func (m *Metrics) panicRecovered() {
	if m != nil {
		m.panics.Inc()
	}
}
