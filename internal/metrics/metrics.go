// Package metrics records batch and request metrics with Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder receives batch and request observations.
type Recorder interface {
	// ObserveBatch records one completed or failed batch.
	ObserveBatch(scenario, source string, runs int, failureRate float64, success bool, duration time.Duration)

	// IncThrottle records a rate-limited request.
	IncThrottle(tool string)
}

// Nop discards all observations.
type Nop struct{}

func (Nop) ObserveBatch(string, string, int, float64, bool, time.Duration) {}
func (Nop) IncThrottle(string)                                             {}

// PrometheusRecorder implements Recorder on its own registry, so several
// recorders can coexist in tests.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	batchesTotal  *prometheus.CounterVec
	runsTotal     *prometheus.CounterVec
	batchDuration *prometheus.HistogramVec
	failureRate   *prometheus.GaugeVec
	throttleTotal *prometheus.CounterVec
}

// NewPrometheusRecorder creates a recorder with Go and process collectors
// registered alongside the phsim metrics.
func NewPrometheusRecorder() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		registry: reg,
		batchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phsim_batches_total",
				Help: "Total number of simulation batches by scenario, source and status",
			},
			[]string{"scenario", "source", "status"},
		),
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phsim_runs_total",
				Help: "Total number of simulated trajectories",
			},
			[]string{"scenario"},
		),
		batchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "phsim_batch_duration_seconds",
				Help:    "Wall-clock duration of simulation batches",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"scenario"},
		),
		failureRate: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "phsim_failure_rate",
				Help: "Failure rate of the most recent batch per scenario",
			},
			[]string{"scenario"},
		),
		throttleTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phsim_throttle_total",
				Help: "Total number of rate-limited requests by tool",
			},
			[]string{"tool"},
		),
	}
}

// ObserveBatch records one batch. Failed batches only count toward
// phsim_batches_total.
func (p *PrometheusRecorder) ObserveBatch(scenario, source string, runs int, failureRate float64, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	p.batchesTotal.WithLabelValues(scenario, source, status).Inc()
	if !success {
		return
	}

	p.runsTotal.WithLabelValues(scenario).Add(float64(runs))
	p.batchDuration.WithLabelValues(scenario).Observe(duration.Seconds())
	p.failureRate.WithLabelValues(scenario).Set(failureRate)
}

// IncThrottle increments the throttle counter for tool.
func (p *PrometheusRecorder) IncThrottle(tool string) {
	p.throttleTotal.WithLabelValues(tool).Inc()
}

// Registry exposes the underlying registry.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}
