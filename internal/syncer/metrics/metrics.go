// Package metrics provides Prometheus metrics for sync cycles.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all sync metrics.
type Metrics struct {
	CyclesTotal          *prometheus.CounterVec   // Completed cycles by outcome status
	CycleDurationSeconds prometheus.Histogram     // Wall time of a full cycle
	StageDurationSeconds *prometheus.HistogramVec // Wall time per stage

	// Reconciliation results by kind (identifier_match, phone_match, create)
	ReconciledTotal *prometheus.CounterVec
	RejectedTotal   prometheus.Counter
	SkippedTotal    prometheus.Counter // Directory entries dropped during decoding

	UpsertsTotal *prometheus.CounterVec // Upserts by result (ok, failed, not_persisted)

	ThrottleWaitsTotal   *prometheus.CounterVec // Throttle envelopes received, by operation
	ThrottleWaitSeconds  prometheus.Counter     // Total time spent waiting out throttles
	CycleInProgress      prometheus.Gauge
	LastSuccessTimestamp prometheus.Gauge
}

// New registers the metrics with the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the metrics with reg (for testing).
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CyclesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "contactsync_cycles_total",
			Help: "Total number of sync cycles by outcome status",
		}, []string{"status"}),

		CycleDurationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "contactsync_cycle_duration_seconds",
			Help:    "Duration of complete sync cycles",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 1800, 3600, 7200},
		}),

		StageDurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "contactsync_stage_duration_seconds",
			Help:    "Duration of sync stages",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 1800},
		}, []string{"stage"}),

		ReconciledTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "contactsync_reconciled_total",
			Help: "Total number of reconciliation decisions by kind",
		}, []string{"kind"}),

		RejectedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "contactsync_reconcile_rejected_total",
			Help: "Total number of directory records rejected by reconciliation",
		}),

		SkippedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "contactsync_directory_skipped_total",
			Help: "Total number of directory entries skipped for data-shape violations",
		}),

		UpsertsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "contactsync_upserts_total",
			Help: "Total number of contact upserts by result",
		}, []string{"result"}),

		ThrottleWaitsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "contactsync_throttle_waits_total",
			Help: "Total number of throttle responses from the contact API by operation",
		}, []string{"op"}),

		ThrottleWaitSeconds: f.NewCounter(prometheus.CounterOpts{
			Name: "contactsync_throttle_wait_seconds_total",
			Help: "Total time spent waiting out contact API throttling",
		}),

		CycleInProgress: f.NewGauge(prometheus.GaugeOpts{
			Name: "contactsync_cycle_in_progress",
			Help: "1 while a sync cycle is running",
		}),

		LastSuccessTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Name: "contactsync_last_success_timestamp_seconds",
			Help: "Unix time of the last cycle that did not fail",
		}),
	}
}

// Upsert results.
const (
	UpsertOK           = "ok"
	UpsertFailed       = "failed"
	UpsertNotPersisted = "not_persisted"
)

// ObserveCycle records a finished cycle.
func (m *Metrics) ObserveCycle(status string, d time.Duration, finished time.Time, failed bool) {
	m.CyclesTotal.WithLabelValues(status).Inc()
	m.CycleDurationSeconds.Observe(d.Seconds())
	if !failed {
		m.LastSuccessTimestamp.Set(float64(finished.Unix()))
	}
}

// ObserveStage records the duration of one stage.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.StageDurationSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordUpsert counts one upsert result.
func (m *Metrics) RecordUpsert(result string) {
	m.UpsertsTotal.WithLabelValues(result).Inc()
}

// RecordThrottle counts a throttle wait. It matches the contact client's
// throttle hook signature.
func (m *Metrics) RecordThrottle(op string, wait time.Duration) {
	m.ThrottleWaitsTotal.WithLabelValues(op).Inc()
	m.ThrottleWaitSeconds.Add(wait.Seconds())
}
