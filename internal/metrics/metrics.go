// Package metrics holds the Prometheus collectors of the acquisition service.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without a registry in tests.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "das"

// Metrics is the set of service collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	datagramsReceived prometheus.Counter
	bytesReceived     prometheus.Counter
	decodeErrors      prometheus.Counter
	readErrors        prometheus.Counter
	updatesApplied    prometheus.Counter
	sinkErrors        *prometheus.CounterVec
	sinkDropped       *prometheus.CounterVec
	events            *prometheus.CounterVec
	serviceState      prometheus.Gauge
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		datagramsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "udp",
			Name: "datagrams_received_total",
			Help: "Total UDP datagrams received",
		}),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "udp",
			Name: "bytes_received_total",
			Help: "Total bytes received from UDP",
		}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "udp",
			Name: "decode_errors_total",
			Help: "Datagrams dropped because they could not be decoded",
		}),
		readErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "udp",
			Name: "read_errors_total",
			Help: "Socket read errors encountered",
		}),
		updatesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pipeline",
			Name: "updates_applied_total",
			Help: "Field updates applied to the device snapshot",
		}),
		sinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sink",
			Name: "errors_total",
			Help: "Sink consume failures",
		}, []string{"sink"}),
		sinkDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sink",
			Name: "dropped_total",
			Help: "Snapshots dropped by a full async sink queue",
		}, []string{"sink"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "analysis",
			Name: "events_total",
			Help: "Analysis events emitted",
		}, []string{"kind"}),
		serviceState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "service",
			Name: "state",
			Help: "Acquisition service state (0 stopped, 1 starting, 2 listening, 3 stopping, 4 faulted)",
		}),
	}

	m.registry.MustRegister(
		m.datagramsReceived,
		m.bytesReceived,
		m.decodeErrors,
		m.readErrors,
		m.updatesApplied,
		m.sinkErrors,
		m.sinkDropped,
		m.events,
		m.serviceState,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) DatagramReceived(n int) {
	if m == nil {
		return
	}
	m.datagramsReceived.Inc()
	m.bytesReceived.Add(float64(n))
}

func (m *Metrics) DecodeError() {
	if m != nil {
		m.decodeErrors.Inc()
	}
}

func (m *Metrics) ReadError() {
	if m != nil {
		m.readErrors.Inc()
	}
}

func (m *Metrics) UpdateApplied() {
	if m != nil {
		m.updatesApplied.Inc()
	}
}

func (m *Metrics) SinkError(sink string) {
	if m != nil {
		m.sinkErrors.WithLabelValues(sink).Inc()
	}
}

func (m *Metrics) SinkDropped(sink string) {
	if m != nil {
		m.sinkDropped.WithLabelValues(sink).Inc()
	}
}

func (m *Metrics) Event(kind string) {
	if m != nil {
		m.events.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) State(state int) {
	if m != nil {
		m.serviceState.Set(float64(state))
	}
}
