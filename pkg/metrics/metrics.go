// Package metrics exposes execution counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the service metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	Submissions   *prometheus.CounterVec
	Executions    *prometheus.CounterVec
	MediaUploads  *prometheus.CounterVec
	ExecutionWait prometheus.Histogram
}

func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	submissions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Prompt submissions to the job engine by result",
		},
		[]string{"result"},
	)

	executions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_total",
			Help:      "Awaited executions by terminal status",
		},
		[]string{"status"},
	)

	mediaUploads := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_uploads_total",
			Help:      "Remote media re-hosted on the job engine by result",
		},
		[]string{"result"},
	)

	executionWait := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "execution_wait_seconds",
			Help:      "Time from submission to a terminal execution status",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	registry.MustRegister(
		submissions,
		executions,
		mediaUploads,
		executionWait,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Collector{
		registry:      registry,
		Submissions:   submissions,
		Executions:    executions,
		MediaUploads:  mediaUploads,
		ExecutionWait: executionWait,
	}
}

func (c *Collector) ObserveSubmission(result string) {
	c.Submissions.WithLabelValues(result).Inc()
}

func (c *Collector) ObserveExecution(status string, wait time.Duration) {
	c.Executions.WithLabelValues(status).Inc()
	c.ExecutionWait.Observe(wait.Seconds())
}

func (c *Collector) ObserveMediaUpload(result string) {
	c.MediaUploads.WithLabelValues(result).Inc()
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
