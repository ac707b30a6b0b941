package embedding

import "math"

// CosineSimilarity 计算余弦相似度，取值 [-1, 1]
// 任一向量模为 0 或长度不一致时返回 0
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// 浮点误差可能略微越界
	return math.Max(-1, math.Min(1, sim))
}

// CosineDistance 余弦距离，与 pgvector 的 <=> 一致
func CosineDistance(a, b []float32) float64 {
	return 1 - CosineSimilarity(a, b)
}

// IsZero 是否为全零向量（降级结果）
func IsZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Zero 返回长度为 dim 的全零向量
func Zero(dim int) []float32 {
	return make([]float32, dim)
}
