package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PipelineMetrics holds all Prometheus metrics for the extraction pipeline.
// The fetch-failure counter exists because the report client deliberately
// suppresses request failures into empty result sets; without it those
// failures would be visible only in logs.
type PipelineMetrics struct {
	RecordsExtracted *prometheus.CounterVec
	FetchFailures    *prometheus.CounterVec
	TaskDuration     *prometheus.HistogramVec
	TableRows        *prometheus.GaugeVec
	RunsTotal        *prometheus.CounterVec
}

// NewPipelineMetrics initializes and registers the metrics on the default
// registry.
func NewPipelineMetrics() *PipelineMetrics {
	return NewPipelineMetricsWith(prometheus.DefaultRegisterer)
}

// NewPipelineMetricsWith registers the metrics on the given registerer.
func NewPipelineMetricsWith(reg prometheus.Registerer) *PipelineMetrics {
	factory := promauto.With(reg)
	return &PipelineMetrics{
		RecordsExtracted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ga4_pipeline",
			Subsystem: "extract",
			Name:      "records_total",
			Help:      "Total number of records extracted and loaded, by report type.",
		}, []string{"report"}),
		FetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ga4_pipeline",
			Subsystem: "extract",
			Name:      "fetch_failures_total",
			Help:      "Total number of suppressed realtime report request failures, by report type.",
		}, []string{"report"}),
		TaskDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ga4_pipeline",
			Subsystem: "run",
			Name:      "task_duration_seconds",
			Help:      "Wall-clock duration of each pipeline task.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"task"}),
		TableRows: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ga4_pipeline",
			Subsystem: "storage",
			Name:      "table_rows",
			Help:      "Row count per managed table, as of the last pipeline summary.",
		}, []string{"table"}),
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ga4_pipeline",
			Subsystem: "run",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs, by outcome.",
		}, []string{"result"}), // result: success, error, skipped
	}
}

// The observe helpers tolerate a nil receiver so components can run without
// metrics wired up, e.g. in tests.

func (m *PipelineMetrics) AddRecordsExtracted(report string, n int) {
	if m == nil {
		return
	}
	m.RecordsExtracted.WithLabelValues(report).Add(float64(n))
}

func (m *PipelineMetrics) ObserveFetchFailure(report string) {
	if m == nil {
		return
	}
	m.FetchFailures.WithLabelValues(report).Inc()
}

func (m *PipelineMetrics) ObserveTaskDuration(task string, d time.Duration) {
	if m == nil {
		return
	}
	m.TaskDuration.WithLabelValues(task).Observe(d.Seconds())
}

func (m *PipelineMetrics) SetTableRows(table string, rows int64) {
	if m == nil {
		return
	}
	m.TableRows.WithLabelValues(table).Set(float64(rows))
}

func (m *PipelineMetrics) ObserveRun(result string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(result).Inc()
}
