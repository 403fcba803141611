// Package metrics records operation outcomes and latencies.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder captures the outcome of a named operation.
type Recorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Noop discards observations.
type Noop struct{}

// Observe implements Recorder.
func (Noop) Observe(context.Context, string, bool, time.Duration) {}

// Prometheus exposes operation counters and a latency histogram on its own
// registry.
type Prometheus struct {
	registry *prometheus.Registry
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheus builds a recorder with Go runtime and process collectors
// registered alongside the operation metrics.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	p := &Prometheus{
		registry: reg,
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "datasetmd",
			Name:      "operations_total",
			Help:      "Operations processed, by operation and status.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "datasetmd",
			Name:      "operation_duration_seconds",
			Help:      "Operation latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	reg.MustRegister(
		p.total,
		p.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

// Observe implements Recorder. Empty operation names are ignored.
func (p *Prometheus) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	p.total.WithLabelValues(operation, status).Inc()
	p.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Registry returns the underlying registry.
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

// Time runs fn and reports its outcome under operation.
func Time(ctx context.Context, r Recorder, operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	if r != nil {
		r.Observe(ctx, operation, err == nil, time.Since(start))
	}
	return err
}
