package embedding

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	Generated         *prometheus.CounterVec
	Errors            *prometheus.CounterVec
	InferenceDuration prometheus.Histogram
	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter
	CacheEvictions    prometheus.Counter
	CacheEntries      prometheus.Gauge
	BreakerState      prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg. Registering two Metrics on the
// same registerer panics, so each engine should get its own registry or a prefixed wrapper.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Generated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kotoba",
			Name:      "embeddings_total",
			Help:      "Embedding results returned, by source.",
		}, []string{"source"}),
		Errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kotoba",
			Name:      "embedding_errors_total",
			Help:      "Failed embedding requests, by failure kind.",
		}, []string{"kind"}),
		InferenceDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "kotoba",
			Name:      "inference_duration_seconds",
			Help:      "Model inference latency.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: "kotoba",
			Name:      "cache_hits_total",
			Help:      "Embedding cache hits.",
		}),
		CacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: "kotoba",
			Name:      "cache_misses_total",
			Help:      "Embedding cache misses.",
		}),
		CacheEvictions: f.NewCounter(prometheus.CounterOpts{
			Namespace: "kotoba",
			Name:      "cache_evictions_total",
			Help:      "Entries removed from the embedding cache.",
		}),
		CacheEntries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "kotoba",
			Name:      "cache_entries",
			Help:      "Current number of cached embeddings.",
		}),
		BreakerState: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "kotoba",
			Name:      "inference_breaker_state",
			Help:      "Inference circuit breaker state (0 closed, 1 half-open, 2 open).",
		}),
	}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
