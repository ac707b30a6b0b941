package embedding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "scaled", a: []float32{1, 2, 3}, b: []float32{2, 4, 6}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "zero vector", a: []float32{0, 0, 0}, b: []float32{1, 2, 3}, want: 0},
		{name: "both zero", a: []float32{0, 0}, b: []float32{0, 0}, want: 0},
		{name: "length mismatch", a: []float32{1, 2}, b: []float32{1, 2, 3}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			assert.InDelta(t, tt.want, got, 1e-6)
			assert.False(t, math.IsNaN(got))
		})
	}
}

func TestCosineSimilarityHighForCloseVectors(t *testing.T) {
	sim := CosineSimilarity([]float32{1, 0, 0}, []float32{0.9, 0.1, 0})
	assert.Greater(t, sim, 0.8)
	assert.LessOrEqual(t, sim, 1.0)
}

func TestCosineSimilarityCommutative(t *testing.T) {
	vectors := [][]float32{
		{0.3, -1.2, 4.5, 0},
		{2, 2, -2, 1},
		{0, 0, 0, 0},
		{-0.001, 5, 0.25, 7},
	}
	for _, a := range vectors {
		for _, b := range vectors {
			assert.Equal(t, CosineSimilarity(a, b), CosineSimilarity(b, a))
		}
	}
}

func TestCosineDistance(t *testing.T) {
	a := []float32{0.5, 1.5, -2}
	b := []float32{1, 1, 1}
	assert.InDelta(t, 1-CosineSimilarity(a, b), CosineDistance(a, b), 1e-12)
	assert.InDelta(t, 0, CosineDistance(a, a), 1e-6)
}

func TestIsZero(t *testing.T) {
	assert.True(t, IsZero(Zero(384)))
	assert.True(t, IsZero(nil))
	assert.False(t, IsZero([]float32{0, 0, 0.1}))
	assert.Len(t, Zero(16), 16)
}
