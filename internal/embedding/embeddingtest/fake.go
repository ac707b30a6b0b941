// Package embeddingtest 提供测试用的确定性向量后端
package embeddingtest

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"
)

// ErrUnavailable 模拟模型不可用
var ErrUnavailable = errors.New("embedding backend unavailable")

// HashProvider 词袋哈希向量：共享词越多，余弦相似度越高
type HashProvider struct {
	Dim int

	mu     sync.Mutex
	fail   bool
	calls  int
	inputs [][]string
}

// NewHashProvider 创建维度为 dim 的后端
func NewHashProvider(dim int) *HashProvider {
	return &HashProvider{Dim: dim}
}

func (p *HashProvider) Name() string { return "hash" }

func (p *HashProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++
	p.inputs = append(p.inputs, append([]string(nil), texts...))
	if p.fail {
		return nil, ErrUnavailable
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = p.vector(text)
	}
	return out, nil
}

// SetFail 切换失败模式
func (p *HashProvider) SetFail(fail bool) {
	p.mu.Lock()
	p.fail = fail
	p.mu.Unlock()
}

// Calls 调用次数
func (p *HashProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Inputs 每次调用收到的文本
func (p *HashProvider) Inputs() [][]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]string(nil), p.inputs...)
}

func (p *HashProvider) vector(text string) []float32 {
	v := make([]float32, p.Dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		v[h.Sum32()%uint32(p.Dim)]++
	}
	return v
}
