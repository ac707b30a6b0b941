// Package embedding 文本向量化与余弦相似度
package embedding

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/user/moviecatalog/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// Generator 把文本映射为固定维度的向量
// 空文本或模型失败时降级为全零向量，不向调用方返回错误；降级会计数并记录日志
type Generator struct {
	provider  Provider
	dimension int
	metrics   *metrics.Metrics
	logger    *slog.Logger
	sf        singleflight.Group
}

// NewGenerator 创建向量生成器，m 可以为 nil
func NewGenerator(provider Provider, dimension int, m *metrics.Metrics) *Generator {
	if provider == nil {
		provider = noopProvider{}
	}
	return &Generator{
		provider:  provider,
		dimension: dimension,
		metrics:   m,
		logger:    slog.Default().With("component", "embedding", "provider", provider.Name()),
	}
}

// WithLogger 替换日志输出
func (g *Generator) WithLogger(logger *slog.Logger) *Generator {
	g.logger = logger.With("component", "embedding", "provider", g.provider.Name())
	return g
}

// Dimension 向量维度
func (g *Generator) Dimension() int {
	return g.dimension
}

// Embed 生成单条文本向量，长度恒为 Dimension()
func (g *Generator) Embed(ctx context.Context, text string) []float32 {
	text = strings.TrimSpace(text)
	if text == "" {
		g.fallback(metrics.ReasonEmptyInput, 1, nil)
		return Zero(g.dimension)
	}

	// 同一文本的并发请求合并为一次模型调用
	// 共享调用不跟随任何单个调用方的取消，超时由 provider 自身控制
	ch := g.sf.DoChan(text, func() (any, error) {
		return g.call(context.WithoutCancel(ctx), []string{text})[0], nil
	})

	select {
	case res := <-ch:
		shared := res.Val.([]float32)
		out := make([]float32, len(shared))
		copy(out, shared)
		return out
	case <-ctx.Done():
		g.fallback(metrics.ReasonProviderError, 1, ctx.Err())
		return Zero(g.dimension)
	}
}

// EmbedBatch 批量生成向量，保持输入顺序和长度；非空文本在一次模型调用中处理
func (g *Generator) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	out := make([][]float32, len(texts))

	idx := make([]int, 0, len(texts))
	inputs := make([]string, 0, len(texts))
	for i, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			g.fallback(metrics.ReasonEmptyInput, 1, nil)
			out[i] = Zero(g.dimension)
			continue
		}
		idx = append(idx, i)
		inputs = append(inputs, text)
	}

	if len(inputs) == 0 {
		return out
	}

	vectors := g.call(ctx, inputs)
	for j, i := range idx {
		out[i] = vectors[j]
	}
	return out
}

// call 调用模型并校验维度，返回与 inputs 等长的结果
func (g *Generator) call(ctx context.Context, inputs []string) [][]float32 {
	start := time.Now()
	vectors, err := g.provider.Embed(ctx, inputs)
	if g.metrics != nil {
		g.metrics.EmbeddingDuration.WithLabelValues(g.provider.Name()).Observe(time.Since(start).Seconds())
	}

	out := make([][]float32, len(inputs))
	if err == nil && len(vectors) != len(inputs) {
		err = errCountMismatch
	}
	if err != nil {
		g.fallback(metrics.ReasonProviderError, len(inputs), err)
		for i := range out {
			out[i] = Zero(g.dimension)
		}
		return out
	}

	for i, v := range vectors {
		if len(v) != g.dimension {
			g.logger.Warn("embedding dimension mismatch", "want", g.dimension, "got", len(v))
			g.fallback(metrics.ReasonDimensionMismatch, 1, nil)
			out[i] = Zero(g.dimension)
			continue
		}
		out[i] = v
	}
	return out
}

func (g *Generator) fallback(reason string, n int, err error) {
	if g.metrics != nil {
		g.metrics.EmbeddingFallbacks.WithLabelValues(g.provider.Name(), reason).Add(float64(n))
	}
	if reason == metrics.ReasonEmptyInput {
		g.logger.Debug("empty text, using zero vector")
		return
	}
	g.logger.Warn("embedding degraded to zero vector", "reason", reason, "count", n, "error", err)
}
