package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initTaskMetrics() {
	r.TasksTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gossipsim_tasks_total",
			Help: "Total number of (graph, grid point) tasks by outcome",
		},
		[]string{"process", "status"},
	)

	r.TaskDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gossipsim_task_duration_seconds",
			Help:    "Time to run all replications of a task",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"process"},
	)

	r.TasksInFlight = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "gossipsim_tasks_in_flight",
			Help: "Number of tasks currently run by a worker",
		},
	)

	r.TasksPending = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "gossipsim_tasks_pending",
			Help: "Number of tasks not yet picked up by a worker",
		},
	)

	r.ReplicationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gossipsim_replications_total",
			Help: "Total number of pooled replication observations",
		},
		[]string{"process"},
	)
}

func (r *Registry) initSinkMetrics() {
	r.RecordsWrittenTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gossipsim_records_written_total",
			Help: "Total number of result lines appended per file",
		},
		[]string{"file"},
	)

	r.SinkErrorsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "gossipsim_sink_errors_total",
			Help: "Total number of failed result appends",
		},
	)
}
