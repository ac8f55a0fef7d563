// Package metrics exposes Prometheus instrumentation for the validation
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector the engine reports into. Construct one per
// process and share it; all methods are safe for concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	sourceFetches   *prometheus.CounterVec
	sourceLatency   *prometheus.HistogramVec
	divergence      prometheus.Histogram
	qualityScore    prometheus.Histogram
	recommendations *prometheus.CounterVec
	guardrailHits   *prometheus.CounterVec
	corrections     prometheus.Counter
	fallbacks       prometheus.Counter
	cycleLatency    prometheus.Histogram
	cacheHits       *prometheus.CounterVec
}

// New builds the collector set on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sourceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signalguard",
			Name:      "source_fetches_total",
			Help:      "Source fetch attempts by source and outcome category.",
		}, []string{"source", "outcome"}),
		sourceLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "signalguard",
			Name:      "source_fetch_seconds",
			Help:      "Source fetch latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		divergence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "signalguard",
			Name:      "price_divergence_pct",
			Help:      "Max source deviation from the median price, percent.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		qualityScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "signalguard",
			Name:      "quality_score",
			Help:      "Composite data quality score per cycle.",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
		recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signalguard",
			Name:      "recommendations_total",
			Help:      "Quality recommendations by kind.",
		}, []string{"recommendation"}),
		guardrailHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signalguard",
			Name:      "guardrail_actions_total",
			Help:      "Guardrail outcomes by resulting action.",
		}, []string{"action"}),
		corrections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "signalguard",
			Name:      "reasoning_corrections_total",
			Help:      "Field corrections applied by the self-validation pass.",
		}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "signalguard",
			Name:      "fallback_fetches_total",
			Help:      "Cycles that served data from a non-primary source.",
		}),
		cycleLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "signalguard",
			Name:      "cycle_seconds",
			Help:      "End-to-end validation cycle latency.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signalguard",
			Name:      "cache_requests_total",
			Help:      "Cache lookups by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.sourceFetches, m.sourceLatency, m.divergence, m.qualityScore,
		m.recommendations, m.guardrailHits, m.corrections, m.fallbacks,
		m.cycleLatency, m.cacheHits,
	)
	return m
}

// Registry returns the backing registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RecordFetch counts one source fetch attempt. outcome is "success" or the
// error category.
func (m *Metrics) RecordFetch(source, outcome string, seconds float64) {
	m.sourceFetches.WithLabelValues(source, outcome).Inc()
	m.sourceLatency.WithLabelValues(source).Observe(seconds)
}

// RecordTriangulation records the per-cycle divergence observation.
func (m *Metrics) RecordTriangulation(maxDeviationPct float64) {
	m.divergence.Observe(maxDeviationPct)
}

// RecordQuality records the composite score and its recommendation.
func (m *Metrics) RecordQuality(score float64, recommendation string) {
	m.qualityScore.Observe(score)
	m.recommendations.WithLabelValues(recommendation).Inc()
}

// RecordGuardrail counts one enforcement outcome by action name.
func (m *Metrics) RecordGuardrail(action string) {
	m.guardrailHits.WithLabelValues(action).Inc()
}

// RecordCorrections adds the number of reasoning fixes from one cycle.
func (m *Metrics) RecordCorrections(n int) {
	if n > 0 {
		m.corrections.Add(float64(n))
	}
}

// RecordFallback counts a cycle that used a non-primary source.
func (m *Metrics) RecordFallback() { m.fallbacks.Inc() }

// RecordCycle records total cycle latency.
func (m *Metrics) RecordCycle(seconds float64) { m.cycleLatency.Observe(seconds) }

// RecordCache counts a cache lookup. result is "hit", "miss", or "bypass".
func (m *Metrics) RecordCache(result string) {
	m.cacheHits.WithLabelValues(result).Inc()
}
