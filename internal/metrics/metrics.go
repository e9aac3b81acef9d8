// Package metrics counts transfer outcomes for Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"WikiMover/internal/domain"
)

// Namespace prefixes every metric name.
const Namespace = "wikimover"

// Recorder holds the run metrics. A nil Recorder records nothing.
type Recorder struct {
	Transfers      *prometheus.CounterVec
	StageFailures  *prometheus.CounterVec
	RenderDegraded prometheus.Counter
	Duration       prometheus.Histogram
}

// NewRecorder creates and registers the metrics on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Recorder{
		Transfers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "transfers_total",
				Help:      "Candidates that finished the pipeline, by final state",
			},
			[]string{"state"},
		),
		StageFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "stage_failures_total",
				Help:      "Failed candidates by stage and error class",
			},
			[]string{"stage", "class"},
		),
		RenderDegraded: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "render_degraded_total",
				Help:      "Descriptions rendered from markup that did not parse cleanly",
			},
		),
		Duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "transfer_duration_seconds",
				Help:      "Time spent on one candidate",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			},
		),
	}
}

// Observe records a finished candidate.
func (r *Recorder) Observe(res domain.TransferResult, took time.Duration) {
	if r == nil {
		return
	}
	r.Transfers.WithLabelValues(string(res.State)).Inc()
	if res.Failed() {
		r.StageFailures.WithLabelValues(string(res.FailedAt), string(domain.Classify(res.Err))).Inc()
	}
	if res.NeedsReview {
		r.RenderDegraded.Inc()
	}
	r.Duration.Observe(took.Seconds())
}
