// Package metrics exports engine activity as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/engine"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

const namespace = "syncsim"

// Metrics is an engine.Observer that counts records, rule firings, faults
// and cascades. Each Metrics owns its registry.
type Metrics struct {
	registry *prometheus.Registry

	records  *prometheus.CounterVec
	firings  *prometheus.CounterVec
	faults   *prometheus.CounterVec
	cascades *prometheus.CounterVec
	size     prometheus.Histogram
	depth    prometheus.Histogram
}

// New registers the engine metrics and the Go runtime collectors on a fresh
// registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_total",
				Help:      "Action records produced, by action and outcome.",
			},
			[]string{"action", "outcome"},
		),
		firings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rule_firings_total",
				Help:      "Rule firings, one per frame that reached the effect phase.",
			},
			[]string{"rule"},
		),
		faults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "faults_total",
				Help:      "Engine faults by code.",
			},
			[]string{"code"},
		),
		cascades: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cascades_total",
				Help:      "Completed cascades by status.",
			},
			[]string{"status"},
		),
		size: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cascade_records",
			Help:      "Records per cascade.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		depth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cascade_depth",
			Help:      "Deepest record depth per cascade.",
			Buckets:   prometheus.LinearBuckets(0, 1, 10),
		}),
	}
	m.registry.MustRegister(
		m.records, m.firings, m.faults, m.cascades, m.size, m.depth,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the metrics live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// OnRecord implements engine.Observer.
func (m *Metrics) OnRecord(_ context.Context, rec ir.ActionRecord) {
	outcome := "ok"
	if rec.IsError() {
		outcome = "error"
	}
	m.records.WithLabelValues(string(rec.Action), outcome).Inc()
}

// OnFiring implements engine.Observer.
func (m *Metrics) OnFiring(_ context.Context, f engine.Firing) {
	m.firings.WithLabelValues(f.Rule).Inc()
}

// OnFault implements engine.Observer.
func (m *Metrics) OnFault(_ context.Context, f *engine.Fault) {
	m.faults.WithLabelValues(string(f.Code)).Inc()
}

// OnCascade implements engine.Observer.
func (m *Metrics) OnCascade(_ context.Context, out *engine.Outcome) {
	status := "complete"
	switch {
	case out.Aborted:
		status = "aborted"
	case len(out.Faults) > 0:
		status = "faulted"
	}
	m.cascades.WithLabelValues(status).Inc()
	m.size.Observe(float64(len(out.Records)))
	m.depth.Observe(float64(out.MaxDepth()))
}
