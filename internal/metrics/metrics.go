// Package metrics counts what capture sessions do. Nothing is served over the
// network; the registry is written to a node_exporter textfile on exit.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	capturesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "click_captures_total",
			Help: "Captures by artifact mode and outcome",
		},
		[]string{"mode", "result"},
	)

	undosTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "click_undos_total",
			Help: "Undo commands applied by artifact mode",
		},
		[]string{"mode"},
	)

	rotationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "click_rotations_total",
			Help: "Document rotations into a new part",
		},
	)

	clipboardTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "click_clipboard_publish_total",
			Help: "Clipboard publish attempts by outcome",
		},
		[]string{"result"},
	)

	saveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "click_save_duration_seconds",
			Help:    "Time to persist one capture into the artifact",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "click_open_sessions",
			Help: "Sessions currently open",
		},
	)

	// Registry holds every click metric.
	Registry = prometheus.NewRegistry()

	initOnce sync.Once
)

// Init registers the metrics with Registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		Registry.MustRegister(
			capturesTotal,
			undosTotal,
			rotationsTotal,
			clipboardTotal,
			saveDuration,
			activeSessions,
		)
	})
}

// Capture outcomes.
const (
	ResultQueued  = "queued"
	ResultSaved   = "saved"
	ResultSkipped = "skipped"
	ResultLocked  = "locked"
	ResultFailed  = "failed"
	ResultOK      = "ok"
)

// RecordCapture counts one capture outcome.
func RecordCapture(mode, result string) {
	capturesTotal.WithLabelValues(mode, result).Inc()
}

// RecordUndo counts one applied undo.
func RecordUndo(mode string) {
	undosTotal.WithLabelValues(mode).Inc()
}

// RecordRotation counts one document rotation.
func RecordRotation() {
	rotationsTotal.Inc()
}

// RecordClipboard counts one clipboard publish.
func RecordClipboard(ok bool) {
	if ok {
		clipboardTotal.WithLabelValues(ResultOK).Inc()
		return
	}
	clipboardTotal.WithLabelValues(ResultFailed).Inc()
}

// ObserveSave records how long a save took.
func ObserveSave(mode string, seconds float64) {
	saveDuration.WithLabelValues(mode).Observe(seconds)
}

// SessionOpened and SessionClosed track the open session gauge.
func SessionOpened() { activeSessions.Inc() }

func SessionClosed() { activeSessions.Dec() }

// WriteTextfile writes the registry in the Prometheus text format to path.
func WriteTextfile(path string) error {
	Init()
	return prometheus.WriteToTextfile(path, Registry)
}
