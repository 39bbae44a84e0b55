// Package metrics exposes run statistics as Prometheus metrics, written as a
// node_exporter textfile after each run.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/albertocavalcante/filesentry/cmd/filesentry/internal/integrity"
)

// Recorder holds the metrics of one process. Each Recorder has its own
// registry so textfiles never carry Go runtime collectors.
type Recorder struct {
	reg *prometheus.Registry

	filesScanned  *prometheus.GaugeVec
	fileFailures  *prometheus.GaugeVec
	bytesHashed   *prometheus.GaugeVec
	scanDuration  *prometheus.GaugeVec
	changes       *prometheus.GaugeVec
	lastSuccess   *prometheus.GaugeVec
	runsTotal     *prometheus.CounterVec
	firstCaptures *prometheus.CounterVec
}

// NewRecorder creates a Recorder with all metrics registered.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		reg: reg,

		filesScanned: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "filesentry_files_scanned",
				Help: "Number of files hashed by the last run",
			},
			[]string{"root"},
		),

		fileFailures: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "filesentry_file_failures",
				Help: "Number of files that could not be read in the last run",
			},
			[]string{"root"},
		),

		bytesHashed: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "filesentry_bytes_hashed",
				Help: "Bytes hashed by the last run",
			},
			[]string{"root"},
		),

		scanDuration: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "filesentry_scan_duration_seconds",
				Help: "Duration of the last snapshot build in seconds",
			},
			[]string{"root"},
		),

		changes: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "filesentry_changes",
				Help: "Files reported by the last comparison, by kind",
			},
			[]string{"root", "kind"},
		),

		lastSuccess: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "filesentry_last_success_timestamp_seconds",
				Help: "Unix time of the last successful run",
			},
			[]string{"root"},
		),

		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filesentry_runs_total",
				Help: "Runs by command and result",
			},
			[]string{"command", "result"},
		),

		firstCaptures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filesentry_first_captures_total",
				Help: "Runs that captured a baseline without comparing, by load status",
			},
			[]string{"root", "status"},
		),
	}
}

// Registry returns the recorder's registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

// ObserveScan records the statistics of a snapshot build.
func (r *Recorder) ObserveScan(scan *integrity.ScanResult) {
	if scan == nil {
		return
	}
	r.filesScanned.WithLabelValues(scan.Root).Set(float64(scan.Snapshot.Len()))
	r.fileFailures.WithLabelValues(scan.Root).Set(float64(len(scan.Failures)))
	r.bytesHashed.WithLabelValues(scan.Root).Set(float64(scan.Bytes))
	r.scanDuration.WithLabelValues(scan.Root).Set(scan.Duration.Seconds())
}

// ObserveRun records a full check or status run.
func (r *Recorder) ObserveRun(run *integrity.Run) {
	if run == nil {
		return
	}
	r.ObserveScan(run.Scan)

	root := run.Scan.Root
	cs := run.Changes
	if cs.Initial {
		r.firstCaptures.WithLabelValues(root, run.LoadStatus.String()).Inc()
	}
	r.changes.WithLabelValues(root, "new").Set(float64(len(cs.New)))
	r.changes.WithLabelValues(root, "changed").Set(float64(len(cs.Changed)))
	r.changes.WithLabelValues(root, "deleted").Set(float64(len(cs.Deleted)))
}

// ObserveResult counts a finished command; success also stamps root's
// last success time. root may be empty for commands without one.
func (r *Recorder) ObserveResult(command, root string, err error, now time.Time) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	r.runsTotal.WithLabelValues(command, result).Inc()

	if err == nil && root != "" {
		r.lastSuccess.WithLabelValues(root).Set(float64(now.Unix()))
	}
}

// WriteTextfile atomically writes all metrics to path in the text
// exposition format read by node_exporter's textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
