// Package metrics provides Prometheus metrics for the subject register.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/JonMunkholm/subjects/internal/subject"
)

// Metrics contains all register metrics.
type Metrics struct {
	SubjectsAddedTotal    prometheus.Counter
	SubjectsRejectedTotal *prometheus.CounterVec // by validation reason
	Subjects              prometheus.Gauge       // current registry size

	StoreLinesSkippedTotal prometheus.Counter // stored lines that failed validation

	ExportsTotal          *prometheus.CounterVec   // by mode (sorted, plain) and result
	ExportDurationSeconds *prometheus.HistogramVec // by mode
}

// New creates a Metrics instance registered with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SubjectsAddedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "subjects_added_total",
			Help: "Total number of subjects accepted into the registry",
		}),

		SubjectsRejectedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "subjects_rejected_total",
			Help: "Total number of rejected subject inputs by validation reason",
		}, []string{"reason"}),

		Subjects: factory.NewGauge(prometheus.GaugeOpts{
			Name: "subjects_registered",
			Help: "Current number of subjects in the registry",
		}),

		StoreLinesSkippedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "subjects_store_lines_skipped_total",
			Help: "Total number of stored lines skipped because they failed validation",
		}),

		ExportsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "subjects_exports_total",
			Help: "Total number of exports by mode and result",
		}, []string{"mode", "result"}),

		ExportDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "subjects_export_duration_seconds",
			Help:    "Duration of export operations by mode",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"mode"}),
	}
}

// RecordAdded records accepted subjects and the new registry size.
func (m *Metrics) RecordAdded(count, total int) {
	m.SubjectsAddedTotal.Add(float64(count))
	m.Subjects.Set(float64(total))
}

// RecordRejected counts every reason carried by a validation error.
func (m *Metrics) RecordRejected(err *subject.ValidationError) {
	for _, r := range err.Reasons() {
		m.SubjectsRejectedTotal.WithLabelValues(string(r)).Inc()
	}
}

// RecordSkippedLine counts one skipped stored line.
func (m *Metrics) RecordSkippedLine() {
	m.StoreLinesSkippedTotal.Inc()
}

// SetSubjects sets the registry size gauge.
func (m *Metrics) SetSubjects(total int) {
	m.Subjects.Set(float64(total))
}

// ObserveExport records the outcome and duration of an export.
func (m *Metrics) ObserveExport(sorted bool, err error, d time.Duration) {
	mode := "plain"
	if sorted {
		mode = "sorted"
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ExportsTotal.WithLabelValues(mode, result).Inc()
	m.ExportDurationSeconds.WithLabelValues(mode).Observe(d.Seconds())
}
