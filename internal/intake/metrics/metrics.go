package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for intake sessions.
type Metrics struct {
	SessionsStarted   prometheus.Counter
	DocumentsScanned  *prometheus.CounterVec
	ScanBatchFailures prometheus.Counter
	FieldsMissing     prometheus.Histogram
	ManualEdits       *prometheus.CounterVec
	Submissions       *prometheus.CounterVec
	SubmitLatency     prometheus.Histogram
	SafetyOverrides   prometheus.Counter
	GateTransitions   *prometheus.CounterVec
	FeedbackRatings   *prometheus.CounterVec
	FeedbackFailures  prometheus.Counter
}

// New registers intake collectors with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers intake collectors with reg. Tests pass a fresh
// prometheus.NewRegistry() so collectors can be created more than once.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "medinauts_intake_sessions_started_total",
			Help: "Total number of intake sessions started",
		}),
		DocumentsScanned: f.NewCounterVec(prometheus.CounterOpts{
			Name: "medinauts_intake_documents_scanned_total",
			Help: "Documents sent to the scan collaborator, labeled by outcome",
		}, []string{"outcome"}),
		ScanBatchFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "medinauts_intake_scan_batch_failures_total",
			Help: "Scan batches in which no document could be read",
		}),
		FieldsMissing: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "medinauts_intake_fields_missing",
			Help:    "Missing field count after each scan batch",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
		}),
		ManualEdits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "medinauts_intake_manual_edits_total",
			Help: "Manual field edits, labeled by field",
		}, []string{"field"}),
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "medinauts_intake_submissions_total",
			Help: "Prediction submissions, labeled by outcome code",
		}, []string{"outcome"}),
		SubmitLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "medinauts_intake_submit_latency_seconds",
			Help:    "Latency of prediction calls in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		SafetyOverrides: f.NewCounter(prometheus.CounterOpts{
			Name: "medinauts_intake_safety_overrides_total",
			Help: "Stage-0 results shown as high risk because of their score",
		}),
		GateTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "medinauts_intake_gate_transitions_total",
			Help: "Navigation transitions, labeled by event and target state",
		}, []string{"event", "to"}),
		FeedbackRatings: f.NewCounterVec(prometheus.CounterOpts{
			Name: "medinauts_intake_feedback_total",
			Help: "Feedback steps, labeled by rating or skipped",
		}, []string{"rating"}),
		FeedbackFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "medinauts_intake_feedback_failures_total",
			Help: "Feedback deliveries that failed and were dropped",
		}),
	}
}

func (m *Metrics) IncrementSessionsStarted() {
	m.SessionsStarted.Inc()
}

// ObserveScanBatch records one scan batch.
func (m *Metrics) ObserveScanBatch(succeeded, failed, missing int) {
	m.DocumentsScanned.WithLabelValues("success").Add(float64(succeeded))
	m.DocumentsScanned.WithLabelValues("failure").Add(float64(failed))
	if succeeded == 0 && failed > 0 {
		m.ScanBatchFailures.Inc()
		return
	}
	m.FieldsMissing.Observe(float64(missing))
}

func (m *Metrics) IncrementManualEdit(field string) {
	m.ManualEdits.WithLabelValues(field).Inc()
}

// ObserveSubmission records a prediction call outcome. outcome is "success"
// or the domain error code.
func (m *Metrics) ObserveSubmission(outcome string, elapsed time.Duration) {
	m.Submissions.WithLabelValues(outcome).Inc()
	m.SubmitLatency.Observe(elapsed.Seconds())
}

func (m *Metrics) IncrementSafetyOverride() {
	m.SafetyOverrides.Inc()
}

func (m *Metrics) IncrementTransition(event, to string) {
	m.GateTransitions.WithLabelValues(event, to).Inc()
}

// ObserveFeedback records a feedback step; rating 0 means skipped.
func (m *Metrics) ObserveFeedback(rating int) {
	label := "skipped"
	if rating > 0 {
		label = strconv.Itoa(rating)
	}
	m.FeedbackRatings.WithLabelValues(label).Inc()
}

func (m *Metrics) IncrementFeedbackFailure() {
	m.FeedbackFailures.Inc()
}
