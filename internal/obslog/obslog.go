// Package obslog wires up structured logging and the Prometheus metrics
// surface shared by the trainer and predictor daemons.
package obslog

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// NewLogger returns a JSON-formatted logrus logger at the given level
// string (e.g. "debug", "info", "warn"); an unparsable level falls back
// to info rather than failing daemon startup over a typo.
func NewLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

// Metrics groups the counters/histograms both consumers report.
type Metrics struct {
	JobsProcessed *prometheus.CounterVec
	JobsFailed    *prometheus.CounterVec
	JobDuration   *prometheus.HistogramVec
	RowsRetained  prometheus.Gauge
}

// NewMetrics registers and returns the shared metric set under namespace
// "fleetms". Safe to call once per process.
func NewMetrics() *Metrics {
	m := &Metrics{
		JobsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fleetms",
			Name:      "jobs_processed_total",
			Help:      "Jobs consumed successfully, by consumer kind.",
		}, []string{"consumer"}),
		JobsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fleetms",
			Name:      "jobs_failed_total",
			Help:      "Jobs that ended in a failed/errored terminal state, by consumer kind and reason.",
		}, []string{"consumer", "reason"}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fleetms",
			Name:      "job_duration_seconds",
			Help:      "Wall-clock duration of one job's CPU-bound work (fit or predict), by consumer kind.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"consumer"}),
		RowsRetained: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fleetms",
			Name:      "feature_frame_rows_retained",
			Help:      "Rows remaining in the most recent Feature Frame after imputation/min-speed filtering.",
		}),
	}
	prometheus.MustRegister(m.JobsProcessed, m.JobsFailed, m.JobDuration, m.RowsRetained)
	return m
}

// Serve starts the /metrics HTTP endpoint on addr in its own goroutine.
func Serve(addr string, log *logrus.Logger) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.WithError(err).Error("metrics server stopped")
		}
	}()
}
