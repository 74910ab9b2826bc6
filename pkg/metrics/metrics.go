// Package metrics exposes the rater's Prometheus instrumentation.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the service's Prometheus collectors
type Metrics struct {
	SavesTotal      *prometheus.CounterVec
	SaveDuration    *prometheus.HistogramVec
	SessionsStarted prometheus.Counter
	StoreCalls      *prometheus.CounterVec
	SuggestsTotal   *prometheus.CounterVec
}

// New creates and registers the collectors on the given registerer. Pass
// prometheus.DefaultRegisterer in main; tests use a private registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SavesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rater_saves_total",
				Help: "Rating table upserts by tab and outcome",
			},
			[]string{"tab", "status"},
		),
		SaveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rater_save_duration_seconds",
				Help:    "Wall-clock time of one multi-table save",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"status"},
		),
		SessionsStarted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rater_sessions_started_total",
				Help: "Annotator sessions created or resumed",
			},
		),
		StoreCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rater_store_calls_total",
				Help: "Tabular store operations by kind and outcome",
			},
			[]string{"op", "status"},
		),
		SuggestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rater_suggestions_total",
				Help: "LLM correction suggestions by outcome",
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(
		m.SavesTotal,
		m.SaveDuration,
		m.SessionsStarted,
		m.StoreCalls,
		m.SuggestsTotal,
	)

	return m
}
