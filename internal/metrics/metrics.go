// Package metrics exposes Prometheus instrumentation for the reconciliation
// core: poll health, command outcomes, and the size of the pending set.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the controller.
type Metrics struct {
	registry *prometheus.Registry

	pollsTotal        prometheus.Counter
	pollFailuresTotal prometheus.Counter
	pollDuration      prometheus.Histogram
	commandsTotal     *prometheus.CounterVec
	resolutionsTotal  *prometheus.CounterVec
	pendingCommands   prometheus.Gauge
	snapshotInputs    prometheus.Gauge
	degraded          prometheus.Gauge
}

// New creates and registers the controller metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	pollsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vmixctl_polls_total",
		Help: "Total number of state polls attempted",
	})
	pollFailuresTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vmixctl_poll_failures_total",
		Help: "Total number of state polls that failed",
	})
	pollDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "vmixctl_poll_duration_seconds",
		Help:    "Latency of state polls",
		Buckets: prometheus.DefBuckets,
	})
	commandsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vmixctl_commands_dispatched_total",
		Help: "Commands dispatched, by kind",
	}, []string{"kind"})
	resolutionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vmixctl_commands_resolved_total",
		Help: "Pending command resolutions, by terminal status",
	}, []string{"status"})
	pendingCommands := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vmixctl_pending_commands",
		Help: "Unresolved pending commands",
	})
	snapshotInputs := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vmixctl_snapshot_inputs",
		Help: "Inputs in the last confirmed snapshot",
	})
	degraded := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vmixctl_connectivity_degraded",
		Help: "1 while the poll loop is in backoff, 0 otherwise",
	})

	registry.MustRegister(
		pollsTotal,
		pollFailuresTotal,
		pollDuration,
		commandsTotal,
		resolutionsTotal,
		pendingCommands,
		snapshotInputs,
		degraded,
	)

	return &Metrics{
		registry:          registry,
		pollsTotal:        pollsTotal,
		pollFailuresTotal: pollFailuresTotal,
		pollDuration:      pollDuration,
		commandsTotal:     commandsTotal,
		resolutionsTotal:  resolutionsTotal,
		pendingCommands:   pendingCommands,
		snapshotInputs:    snapshotInputs,
		degraded:          degraded,
	}
}

// ObservePoll records one poll outcome.
func (m *Metrics) ObservePoll(ok bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.pollsTotal.Inc()
	if !ok {
		m.pollFailuresTotal.Inc()
	}
	m.pollDuration.Observe(elapsed.Seconds())
}

// CommandDispatched counts one dispatched command.
func (m *Metrics) CommandDispatched(kind string) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(kind).Inc()
}

// CommandResolved counts one terminal resolution.
func (m *Metrics) CommandResolved(status string) {
	if m == nil {
		return
	}
	m.resolutionsTotal.WithLabelValues(status).Inc()
}

// SetPendingCommands updates the pending-set gauge.
func (m *Metrics) SetPendingCommands(count int) {
	if m == nil {
		return
	}
	m.pendingCommands.Set(float64(count))
}

// SetSnapshotInputs updates the input-count gauge.
func (m *Metrics) SetSnapshotInputs(count int) {
	if m == nil {
		return
	}
	m.snapshotInputs.Set(float64(count))
}

// SetDegraded flips the connectivity gauge.
func (m *Metrics) SetDegraded(degraded bool) {
	if m == nil {
		return
	}
	if degraded {
		m.degraded.Set(1)
	} else {
		m.degraded.Set(0)
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
