package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records aggregation pipeline outcomes.
type PipelineMetrics struct {
	duration          *prometheus.HistogramVec
	processed         prometheus.Counter
	skipped           *prometheus.CounterVec
	upsertFailures    prometheus.Counter
	recomputeFailures prometheus.Counter
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "invoice_pipeline_duration_seconds",
		Help:    "Duration of one invoice aggregation run in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	processed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "invoices_processed_total",
		Help: "Invoices that completed aggregation.",
	})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "invoices_skipped_total",
		Help: "Invoices skipped before any write.",
	}, []string{"reason"})
	upsertFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "performance_upsert_failures_total",
		Help: "Failed per-brand performance upserts.",
	})
	recomputeFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "brand_stats_recompute_failures_total",
		Help: "Failed brand stats recompute passes.",
	})
	reg.MustRegister(duration, processed, skipped, upsertFailures, recomputeFailures)
	return &PipelineMetrics{
		duration:          duration,
		processed:         processed,
		skipped:           skipped,
		upsertFailures:    upsertFailures,
		recomputeFailures: recomputeFailures,
	}
}

// ObserveDuration records the duration of one run with its outcome label.
func (p *PipelineMetrics) ObserveDuration(outcome string, duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncProcessed increments the processed counter.
func (p *PipelineMetrics) IncProcessed() {
	if p == nil || p.processed == nil {
		return
	}
	p.processed.Inc()
}

// IncSkipped increments the skipped counter for the given reason.
func (p *PipelineMetrics) IncSkipped(reason string) {
	if p == nil || p.skipped == nil {
		return
	}
	p.skipped.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncUpsertFailure increments the upsert failure counter.
func (p *PipelineMetrics) IncUpsertFailure() {
	if p == nil || p.upsertFailures == nil {
		return
	}
	p.upsertFailures.Inc()
}

// IncRecomputeFailure increments the recompute failure counter.
func (p *PipelineMetrics) IncRecomputeFailure() {
	if p == nil || p.recomputeFailures == nil {
		return
	}
	p.recomputeFailures.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
