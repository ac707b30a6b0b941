package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/moviecatalog/internal/config"
)

// ErrNoProvider 未配置向量模型
var ErrNoProvider = errors.New("embedding provider disabled")

var errCountMismatch = errors.New("embedding count does not match input count")

// Provider 向量模型后端，按输入顺序返回向量
type Provider interface {
	Name() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// NewProvider 根据配置创建后端
func NewProvider(cfg config.EmbeddingConfig) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		return NewOllamaProvider(cfg.OllamaHost, cfg.OllamaModel, cfg.Timeout), nil
	case config.ProviderOpenAI:
		return NewOpenAIProvider(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.Dimension, cfg.Timeout), nil
	case config.ProviderNone:
		return noopProvider{}, nil
	}
	return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
}

type noopProvider struct{}

func (noopProvider) Name() string { return config.ProviderNone }

func (noopProvider) Embed(context.Context, []string) ([][]float32, error) {
	return nil, ErrNoProvider
}
