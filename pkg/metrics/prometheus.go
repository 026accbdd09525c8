package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	signalsTotal *prometheus.CounterVec
	alertsTotal  *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastScore    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "altscan_signals_total",
				Help: "Total number of scan outcomes by symbol and side",
			},
			[]string{"symbol", "side"},
		),
		alertsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "altscan_alerts_total",
				Help: "Total number of alerts by delivery outcome",
			},
			[]string{"outcome"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "altscan_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastScore: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "altscan_last_score",
				Help: "Last final score for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "altscan_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordSignal records one scan outcome.
func (r *Recorder) RecordSignal(symbol, side string) {
	r.signalsTotal.WithLabelValues(symbol, side).Inc()
}

// RecordAlert records an alert delivery outcome.
func (r *Recorder) RecordAlert(outcome string) {
	r.alertsTotal.WithLabelValues(outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastScore records the last final score for a symbol.
func (r *Recorder) RecordLastScore(symbol string, score float64) {
	r.lastScore.WithLabelValues(symbol).Set(score)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
