// Package metrics exposes generation counters on a private Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "synthdata"

// Recorder holds the collectors. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	rows        prometheus.Counter
	batches     prometheus.Counter
	runs        *prometheus.CounterVec
	parses      *prometheus.CounterVec
	exportBytes *prometheus.CounterVec
	duration    prometheus.Histogram
}

// New registers every collector, plus Go runtime and process collectors, on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_generated_total",
			Help:      "Entries synthesized across all runs.",
		}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Batches completed across all runs.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Generation runs by outcome.",
		}, []string{"result"}),
		parses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requirement_parses_total",
			Help:      "Free-text requirement parses by outcome.",
		}, []string{"result"}),
		exportBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_bytes_total",
			Help:      "Bytes written by exports, per format.",
		}, []string{"format"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Wall time of generation runs.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 10),
		}),
	}
	r.registry.MustRegister(
		r.rows, r.batches, r.runs, r.parses, r.exportBytes, r.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry returns the private registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Batch records one completed batch of rows entries.
func (r *Recorder) Batch(rows int) {
	if r == nil {
		return
	}
	r.batches.Inc()
	r.rows.Add(float64(rows))
}

// Run records a finished generation run.
func (r *Recorder) Run(elapsed time.Duration, err error) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(result(err)).Inc()
	r.duration.Observe(elapsed.Seconds())
}

// Parse records a requirements parse.
func (r *Recorder) Parse(err error) {
	if r == nil {
		return
	}
	r.parses.WithLabelValues(result(err)).Inc()
}

// ExportBytes adds n bytes written in format.
func (r *Recorder) ExportBytes(format string, n int64) {
	if r == nil || n <= 0 {
		return
	}
	r.exportBytes.WithLabelValues(format).Add(float64(n))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
