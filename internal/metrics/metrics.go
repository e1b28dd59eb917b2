// Package metrics exposes Prometheus instrumentation for the sync core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pulse"

// Sync holds the collectors for one client session. A nil *Sync is valid and
// records nothing.
type Sync struct {
	registry *prometheus.Registry

	UpdatesApplied *prometheus.CounterVec
	FetchFailures  *prometheus.CounterVec
	Prompts        *prometheus.CounterVec
	Connected      prometheus.Gauge
	PollingActive  prometheus.Gauge
	Records        prometheus.Gauge
}

// New registers the sync collectors on a fresh registry.
func New() *Sync {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Sync{
		registry: reg,
		UpdatesApplied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "updates_applied_total",
				Help:      "Snapshots accepted by the coordinator, by origin.",
			},
			[]string{"origin"}, // push, poll, refresh
		),
		FetchFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_failures_total",
				Help:      "Failed pulls and push channel errors, by source.",
			},
			[]string{"source"}, // poll, refresh, push
		),
		Prompts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "prompts_total",
				Help:      "Interactive prompts requested, by kind and outcome.",
			},
			[]string{"kind", "outcome"}, // outcome: shown, suppressed
		),
		Connected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "push_connected",
			Help:      "1 while the push channel is connected.",
		}),
		PollingActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "polling_active",
			Help:      "1 while the polling fallback is running.",
		}),
		Records: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_records",
			Help:      "Number of records in the current snapshot.",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Sync) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordUpdate counts an accepted snapshot.
func (m *Sync) RecordUpdate(origin string, records int) {
	if m == nil {
		return
	}
	m.UpdatesApplied.WithLabelValues(origin).Inc()
	m.Records.Set(float64(records))
}

// RecordFailure counts a failed fetch or channel error.
func (m *Sync) RecordFailure(source string) {
	if m == nil {
		return
	}
	m.FetchFailures.WithLabelValues(source).Inc()
}

// RecordPrompt counts a prompt request and whether the gate let it through.
func (m *Sync) RecordPrompt(kind string, shown bool) {
	if m == nil {
		return
	}
	outcome := "suppressed"
	if shown {
		outcome = "shown"
	}
	m.Prompts.WithLabelValues(kind, outcome).Inc()
}

// SetTransport mirrors the connection and polling state.
func (m *Sync) SetTransport(connected, polling bool) {
	if m == nil {
		return
	}
	m.Connected.Set(boolToFloat(connected))
	m.PollingActive.Set(boolToFloat(polling))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
