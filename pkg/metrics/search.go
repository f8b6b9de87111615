// Package metrics registers the Prometheus instruments for image search.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Search outcome labels.
const (
	OutcomeHashHit       = "hash_hit"
	OutcomeVisionHit     = "vision_hit"
	OutcomeVisionSkipped = "vision_skipped"
	OutcomeMiss          = "miss"
)

// SearchMetrics records image-search outcomes and latency.
type SearchMetrics struct {
	outcomes *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewSearchMetrics registers the search metrics on the provided registerer.
func NewSearchMetrics(reg prometheus.Registerer) *SearchMetrics {
	if reg == nil {
		return &SearchMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "image_search_outcomes_total",
		Help: "Image searches by resolution outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "image_search_duration_seconds",
		Help:    "End-to-end image search duration in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(outcomes, duration)
	return &SearchMetrics{outcomes: outcomes, duration: duration}
}

// IncOutcome counts one search that resolved with the given outcome.
func (s *SearchMetrics) IncOutcome(outcome string) {
	if s == nil || s.outcomes == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	s.outcomes.WithLabelValues(outcome).Inc()
}

// ObserveDuration records how long a search took.
func (s *SearchMetrics) ObserveDuration(d time.Duration) {
	if s == nil || s.duration == nil {
		return
	}
	s.duration.Observe(d.Seconds())
}
