package mirror

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "mtcview"

// Metrics counts what a session applied. Create it once per registry.
type Metrics struct {
	// UpdatesTotal counts applied feed messages. Labels: feed (description, statistics, solution)
	UpdatesTotal *prometheus.CounterVec

	// StageErrorsTotal counts skipped batch entries. Labels: feed (description, statistics)
	StageErrorsTotal *prometheus.CounterVec

	// DecodeErrorsTotal counts messages dropped because they could not be decoded.
	DecodeErrorsTotal prometheus.Counter

	// FetchesTotal counts on-demand solution fetches. Labels: result (ok, not_found, error)
	FetchesTotal *prometheus.CounterVec

	// Stages is the number of mirrored stages.
	Stages prometheus.Gauge

	// CachedSolutions is the number of cached display solutions.
	CachedSolutions prometheus.Gauge
}

// NewMetrics registers the session metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UpdatesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "updates_total",
			Help:      "Feed messages applied to the mirror, by feed",
		}, []string{"feed"}),
		StageErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "stage_errors_total",
			Help:      "Batch entries skipped because they referenced unknown stages, by feed",
		}, []string{"feed"}),
		DecodeErrorsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "decode_errors_total",
			Help:      "Feed messages dropped because they could not be decoded",
		}),
		FetchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "solution_fetches_total",
			Help:      "On-demand solution fetches, by result",
		}, []string{"result"}),
		Stages: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "stages",
			Help:      "Number of mirrored stages",
		}),
		CachedSolutions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "cached_solutions",
			Help:      "Number of cached display solutions",
		}),
	}
}
