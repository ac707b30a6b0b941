// Package metrics 导出 Prometheus 指标
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "moviecatalog"

// 向量降级原因
const (
	ReasonEmptyInput        = "empty_input"
	ReasonProviderError     = "provider_error"
	ReasonDimensionMismatch = "dimension_mismatch"
)

// Metrics 服务指标集合
type Metrics struct {
	registry *prometheus.Registry

	EmbeddingFallbacks *prometheus.CounterVec
	EmbeddingDuration  *prometheus.HistogramVec
	SimilarityQueries  *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
}

// New 创建指标集合，registry 为 nil 时新建
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,
		EmbeddingFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "embedding_fallbacks_total",
				Help:      "Embeddings replaced by the all-zero vector",
			},
			[]string{"provider", "reason"},
		),
		EmbeddingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "embedding_duration_seconds",
				Help:      "Embedding provider call latency in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"provider"},
		),
		SimilarityQueries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "similarity_queries_total",
				Help:      "Similar-movie lookups by vector type",
			},
			[]string{"vector_type"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
	}

	registry.MustRegister(
		m.EmbeddingFallbacks,
		m.EmbeddingDuration,
		m.SimilarityQueries,
		m.HTTPRequests,
	)

	return m
}

// Handler /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
