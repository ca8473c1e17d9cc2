package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/stationsync/internal/progress"
)

// PrometheusSink turns progress events into run, task and document metrics.
type PrometheusSink struct {
	runsStarted   prometheus.Counter
	runsCompleted prometheus.Counter
	runDuration   prometheus.Gauge
	lastRun       prometheus.Gauge

	tasks        *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	documents    *prometheus.CounterVec
	writes       *prometheus.CounterVec
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stationsync_runs_started_total",
			Help: "Sync runs started.",
		}),
		runsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stationsync_runs_completed_total",
			Help: "Sync runs that reached the end of the task list.",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stationsync_run_duration_seconds",
			Help: "Wall time of the most recent run.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stationsync_last_run_timestamp_seconds",
			Help: "Unix time the most recent run finished.",
		}),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stationsync_tasks_total",
			Help: "Finished tasks partitioned by kind and outcome.",
		}, []string{"kind", "outcome"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stationsync_task_duration_seconds",
			Help:    "Task wall time partitioned by kind and outcome.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"kind", "outcome"}),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stationsync_documents_extracted_total",
			Help: "Canonical station documents extracted per task kind.",
		}, []string{"kind"}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stationsync_store_writes_total",
			Help: "Bulk upsert results partitioned by result.",
		}, []string{"result"}),
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.runsCompleted,
		s.runDuration,
		s.lastRun,
		s.tasks,
		s.taskDuration,
		s.documents,
		s.writes,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from the batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageRunStart:
		s.runsStarted.Inc()
	case progress.StageRunDone:
		s.runsCompleted.Inc()
		s.runDuration.Set(evt.Dur.Seconds())
		s.lastRun.Set(float64(evt.TS.Unix()))
	case progress.StageTaskDone:
		s.observeTask(evt, "synced")
		s.documents.WithLabelValues(kindLabel(evt)).Add(float64(evt.Docs))
		s.writes.WithLabelValues("upserted").Add(float64(evt.Upserted))
		s.writes.WithLabelValues("modified").Add(float64(evt.Modified))
		s.writes.WithLabelValues("matched").Add(float64(evt.Matched))
	case progress.StageTaskSkipped:
		s.observeTask(evt, "skipped")
	case progress.StageTaskError:
		s.observeTask(evt, "failed")
	}
}

func (s *PrometheusSink) observeTask(evt progress.Event, outcome string) {
	kind := kindLabel(evt)
	s.tasks.WithLabelValues(kind, outcome).Inc()
	if evt.Dur > 0 {
		s.taskDuration.WithLabelValues(kind, outcome).Observe(evt.Dur.Seconds())
	}
}

func kindLabel(evt progress.Event) string {
	if evt.Kind == "" {
		return "unknown"
	}
	return evt.Kind
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
