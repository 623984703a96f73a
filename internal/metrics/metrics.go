// Package metrics exposes scoring activity as Prometheus metrics on a
// registry owned by the application.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abrezinsky/scoretally/internal/services"
)

// Metrics implements services.Metrics with Prometheus collectors
type Metrics struct {
	registry       *prometheus.Registry
	scoreSaves     *prometheus.CounterVec
	submissions    *prometheus.CounterVec
	realtimeEvents *prometheus.CounterVec
	tabulation     *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry, along with the Go
// runtime and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		scoreSaves: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scoretally_score_saves_total",
				Help: "Score cell saves by outcome.",
			},
			[]string{"outcome"},
		),
		submissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scoretally_submissions_total",
				Help: "Submit-all attempts by outcome.",
			},
			[]string{"outcome"},
		),
		realtimeEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scoretally_realtime_events_total",
				Help: "Committed row changes published to the change feed, by table.",
			},
			[]string{"table"},
		),
		tabulation: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scoretally_tabulation_seconds",
				Help:    "Time spent computing rankings.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"view"},
		),
	}
}

// ScoreSave counts one cell save
func (m *Metrics) ScoreSave(outcome string) {
	m.scoreSaves.WithLabelValues(outcome).Inc()
}

// Submission counts one submit-all
func (m *Metrics) Submission(outcome string) {
	m.submissions.WithLabelValues(outcome).Inc()
}

// ObserveTabulation records how long a ranking took
func (m *Metrics) ObserveTabulation(view string, d time.Duration) {
	m.tabulation.WithLabelValues(view).Observe(d.Seconds())
}

// RealtimeEvent counts one published change
func (m *Metrics) RealtimeEvent(table string) {
	m.realtimeEvents.WithLabelValues(table).Inc()
}

// Registry returns the registry the collectors live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

var _ services.Metrics = (*Metrics)(nil)
