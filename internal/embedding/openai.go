package embedding

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider 兼容 OpenAI 协议的向量接口（OpenAI、SiliconFlow、vLLM 等）
type OpenAIProvider struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewOpenAIProvider 创建 OpenAI 兼容后端
func NewOpenAIProvider(baseURL, apiKey, model string, dimensions int, timeout time.Duration) *OpenAIProvider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      model,
		dimensions: dimensions,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.EmbeddingModel(p.model),
		Dimensions: p.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	// 按 index 还原输入顺序
	vectors := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(texts) {
			return nil, fmt.Errorf("openai returned out-of-range index %d", data.Index)
		}
		vectors[data.Index] = data.Embedding
	}

	return vectors, nil
}
