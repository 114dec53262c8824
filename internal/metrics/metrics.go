// Package metrics defines the Prometheus instruments for the sync pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes.
const (
	OutcomeOK           = "ok"
	OutcomeMalformed    = "malformed"
	OutcomeSyncFailed   = "sync_failed"
	OutcomeExtractError = "extract_failed"
	OutcomeUploadFailed = "upload_failed"
	OutcomeDropped      = "dropped"
)

// Pipeline stages.
const (
	StageSync    = "sync"
	StageExtract = "extract"
	StageUpload  = "upload"
)

// Metrics holds the pipeline's Prometheus collectors.
//
// Metrics:
//   - dvc_requests_total{outcome} - handled requests by final outcome
//   - dvc_sync_total{action,result} - mirror syncs, action clone or update
//   - dvc_records_extracted_total - records produced by extraction
//   - dvc_files_skipped_total - sample files skipped as unparseable
//   - dvc_rows_total{result} - rows inserted or already present
//   - dvc_upload_failures_total{reason} - uploads abandoned (connection, query)
//   - dvc_stage_duration_seconds{stage} - time spent per pipeline stage
//   - dvc_queue_depth - requests waiting in the dispatch queue
//
// All methods are safe on a nil *Metrics.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	SyncTotal        *prometheus.CounterVec
	RecordsExtracted prometheus.Counter
	FilesSkipped     prometheus.Counter
	RowsTotal        *prometheus.CounterVec
	UploadFailures   *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	QueueDepth       prometheus.Gauge
}

// New creates the collectors and registers them with reg.
// Use prometheus.DefaultRegisterer in the service and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dvc_requests_total",
				Help: "Total sync requests handled, by outcome",
			},
			[]string{"outcome"},
		),
		SyncTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dvc_sync_total",
				Help: "Total repository synchronizations",
			},
			[]string{"action", "result"}, // action: "clone" or "update"; result: "ok" or "error"
		),
		RecordsExtracted: f.NewCounter(prometheus.CounterOpts{
			Name: "dvc_records_extracted_total",
			Help: "Total records extracted from sample files",
		}),
		FilesSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "dvc_files_skipped_total",
			Help: "Total sample files skipped because they could not be parsed",
		}),
		RowsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dvc_rows_total",
				Help: "Total records offered to the database, by result",
			},
			[]string{"result"}, // "inserted" or "existing"
		),
		UploadFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dvc_upload_failures_total",
				Help: "Total uploads abandoned, by reason",
			},
			[]string{"reason"}, // "connection" or "query"
		),
		StageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dvc_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
			},
			[]string{"stage"},
		),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "dvc_queue_depth",
			Help: "Requests waiting in the dispatch queue",
		}),
	}
}

// Request counts one finished request.
func (m *Metrics) Request(outcome string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(outcome).Inc()
}

// Sync counts one mirror synchronization.
func (m *Metrics) Sync(cloned bool, err error) {
	if m == nil {
		return
	}
	action := "update"
	if cloned {
		action = "clone"
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.SyncTotal.WithLabelValues(action, result).Inc()
}

// Extracted counts the outcome of one extraction.
func (m *Metrics) Extracted(records, skipped int) {
	if m == nil {
		return
	}
	m.RecordsExtracted.Add(float64(records))
	m.FilesSkipped.Add(float64(skipped))
}

// Rows counts inserted and pre-existing rows of one upload.
func (m *Metrics) Rows(inserted, existing int) {
	if m == nil {
		return
	}
	m.RowsTotal.WithLabelValues("inserted").Add(float64(inserted))
	m.RowsTotal.WithLabelValues("existing").Add(float64(existing))
}

// UploadFailed counts one abandoned upload.
func (m *Metrics) UploadFailed(reason string) {
	if m == nil {
		return
	}
	m.UploadFailures.WithLabelValues(reason).Inc()
}

// ObserveStage records how long a stage took since start.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// SetQueueDepth reports the number of queued requests.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}
