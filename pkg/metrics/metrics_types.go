package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all metrics of a simulation run
type Registry struct {
	// Task Metrics
	TasksTotal    *prometheus.CounterVec
	TaskDuration  *prometheus.HistogramVec
	TasksInFlight prometheus.Gauge
	TasksPending  prometheus.Gauge

	// Replication Metrics
	ReplicationsTotal *prometheus.CounterVec

	// Result Sink Metrics
	RecordsWrittenTotal *prometheus.CounterVec
	SinkErrorsTotal     prometheus.Counter

	registry *prometheus.Registry
}

// NewRegistry creates a registry with every metric registered
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initTaskMetrics()
	r.initSinkMetrics()

	return r
}

func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Handler serves the metrics in the Prometheus text format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
