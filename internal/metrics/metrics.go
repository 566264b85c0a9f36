// Package metrics exposes Prometheus instrumentation for a vectodb
// database, grounded in therealutkarshpriyadarshi-vector's
// pkg/observability/metrics.go. Registration is optional: a nil registry
// disables it entirely, so embedding vectodb never forces a metrics
// dependency on the caller.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for one database instance.
type Metrics struct {
	VectorsAdded   prometheus.Counter
	SearchesServed prometheus.Counter
	SearchLatency  prometheus.Histogram
	BuildsTotal    prometheus.Counter
	BuildDuration  prometheus.Histogram
	Activations    prometheus.Counter

	FlatTailSize prometheus.Gauge
	ActiveNtrain prometheus.Gauge
	ActiveNtotal prometheus.Gauge
	BaseSize     prometheus.Gauge
}

// New creates and, if reg is non-nil, registers the database's metrics.
// A nil *Metrics is a valid no-op receiver for every method below.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		VectorsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vectodb_vectors_added_total",
			Help: "Total number of vectors appended via AddWithIds.",
		}),
		SearchesServed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vectodb_searches_served_total",
			Help: "Total number of Search calls served.",
		}),
		SearchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vectodb_search_latency_seconds",
			Help:    "Latency of Search calls.",
			Buckets: prometheus.DefBuckets,
		}),
		BuildsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vectodb_builds_total",
			Help: "Total number of completed index builds.",
		}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vectodb_build_duration_seconds",
			Help:    "Duration of index builds.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		Activations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vectodb_activations_total",
			Help: "Total number of index activations.",
		}),
		FlatTailSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vectodb_flat_tail_size",
			Help: "Number of rows not yet covered by the active index (N - ntotal).",
		}),
		ActiveNtrain: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vectodb_active_ntrain",
			Help: "Training size of the currently active index.",
		}),
		ActiveNtotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vectodb_active_ntotal",
			Help: "Number of rows covered by the currently active index.",
		}),
		BaseSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vectodb_base_size",
			Help: "Total number of rows in the base store (N).",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.VectorsAdded, m.SearchesServed, m.SearchLatency,
			m.BuildsTotal, m.BuildDuration, m.Activations,
			m.FlatTailSize, m.ActiveNtrain, m.ActiveNtotal, m.BaseSize)
	}
	return m
}

func (m *Metrics) ObserveAdd(nb int) {
	if m == nil {
		return
	}
	m.VectorsAdded.Add(float64(nb))
}

func (m *Metrics) ObserveSearch(start time.Time) {
	if m == nil {
		return
	}
	m.SearchesServed.Inc()
	m.SearchLatency.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveBuild(start time.Time) {
	if m == nil {
		return
	}
	m.BuildsTotal.Inc()
	m.BuildDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveActivate(ntrain, ntotal, n int) {
	if m == nil {
		return
	}
	m.Activations.Inc()
	m.ActiveNtrain.Set(float64(ntrain))
	m.ActiveNtotal.Set(float64(ntotal))
	m.FlatTailSize.Set(float64(n - ntotal))
	m.BaseSize.Set(float64(n))
}

func (m *Metrics) ObserveState(ntrain, ntotal, n int) {
	if m == nil {
		return
	}
	m.ActiveNtrain.Set(float64(ntrain))
	m.ActiveNtotal.Set(float64(ntotal))
	m.FlatTailSize.Set(float64(n - ntotal))
	m.BaseSize.Set(float64(n))
}
