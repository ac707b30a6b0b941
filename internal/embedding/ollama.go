package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ollamaEmbedRequest Ollama /api/embed 请求结构
type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// ollamaEmbedResponse Ollama /api/embed 响应结构
type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

// OllamaProvider 调用本地 Ollama 生成向量
type OllamaProvider struct {
	host       string
	model      string
	httpClient *http.Client
}

// NewOllamaProvider 创建 Ollama 后端
func NewOllamaProvider(host, model string, timeout time.Duration) *OllamaProvider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OllamaProvider{
		host:       strings.TrimRight(host, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (p *OllamaProvider) Name() string { return "ollama" }

// Embed 一次请求处理整批文本
func (p *OllamaProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	jsonData, err := json.Marshal(ollamaEmbedRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+"/api/embed", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post request to ollama failed: %w", err)
	}
	defer resp.Body.Close()

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("ollama returned error status: %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("decode response failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned error status: %d %s", resp.StatusCode, result.Error)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(result.Embeddings), len(texts))
	}

	return result.Embeddings, nil
}
