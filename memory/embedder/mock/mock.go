// Package mock provides deterministic embedders that need no model files.
package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// MockEmbedder generates deterministic embeddings based on text hash.
// Identical texts score 1.0; any other pair is close to 0.
type MockEmbedder struct {
	dimensions int
}

// New creates a new mock embedder.
func New() *MockEmbedder {
	return &MockEmbedder{
		dimensions: 384, // Match all-MiniLM-L6-v2 dimensions
	}
}

// Embed creates a deterministic embedding from text.
func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	embedding := make([]float32, m.dimensions)
	for i := 0; i < m.dimensions; i++ {
		// Simple LCG (Linear Congruential Generator)
		seed = seed*6364136223846793005 + 1442695040888963407
		embedding[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}

	return normalize(embedding), nil
}

// Dimensions returns the embedding size.
func (m *MockEmbedder) Dimensions() int {
	return m.dimensions
}

// BagOfWords hashes every lower-cased word of a text into one dimension, so
// texts sharing words get a positive similarity. It is the embedder used
// when no model is configured.
type BagOfWords struct {
	dimensions int
}

// NewBagOfWords creates a bag-of-words embedder with the given size.
func NewBagOfWords(dimensions int) *BagOfWords {
	if dimensions <= 0 {
		dimensions = 512
	}
	return &BagOfWords{dimensions: dimensions}
}

// Embed returns the normalized word-count vector of text. A text without
// words yields a zero vector.
func (b *BagOfWords) Embed(ctx context.Context, text string) ([]float32, error) {
	embedding := make([]float32, b.dimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		embedding[h.Sum32()%uint32(b.dimensions)]++
	}
	return normalize(embedding), nil
}

// Dimensions returns the embedding size.
func (b *BagOfWords) Dimensions() int {
	return b.dimensions
}

// normalize converts embedding to unit vector.
func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}

	if norm == 0 {
		return vec
	}

	norm = float32(math.Sqrt(float64(norm)))
	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = v / norm
	}

	return normalized
}
