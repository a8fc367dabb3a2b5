package metrics

import (
	"time"
)

// RecordTask records a finished task with its duration and observation count
func (r *Registry) RecordTask(process, status string, duration time.Duration, observations int) {
	r.TasksTotal.WithLabelValues(process, status).Inc()
	r.TaskDuration.WithLabelValues(process).Observe(duration.Seconds())
	r.ReplicationsTotal.WithLabelValues(process).Add(float64(observations))
}

// RecordWrite records one appended result line
func (r *Registry) RecordWrite(file string) {
	r.RecordsWrittenTotal.WithLabelValues(file).Inc()
}

func (r *Registry) RecordSinkError() {
	r.SinkErrorsTotal.Inc()
}

func (r *Registry) TaskStarted() {
	r.TasksInFlight.Inc()
	r.TasksPending.Dec()
}

func (r *Registry) TaskFinished() {
	r.TasksInFlight.Dec()
}

func (r *Registry) SetPending(n int) {
	r.TasksPending.Set(float64(n))
}
