// Package memo memoizes an embedder in a ristretto cache so repeated query
// texts are embedded once.
package memo

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"

	"github.com/becomeliminal/nim-memory/memory"
)

// MemoEmbedder wraps an Embedder with a bounded text -> vector cache.
// Failed calls are not cached.
type MemoEmbedder struct {
	inner memory.Embedder
	cache *ristretto.Cache
}

// New wraps inner with a cache holding up to maxEntries vectors.
func New(inner memory.Embedder, maxEntries int64) (*MemoEmbedder, error) {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &MemoEmbedder{inner: inner, cache: cache}, nil
}

// Embed returns the cached vector for text or computes and caches it.
func (m *MemoEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := m.cache.Get(text); ok {
		return append([]float32(nil), v.([]float32)...), nil
	}

	vec, err := m.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	m.cache.Set(text, append([]float32(nil), vec...), 1)
	m.cache.Wait()
	return vec, nil
}

// Dimensions returns the wrapped embedder's size.
func (m *MemoEmbedder) Dimensions() int {
	return m.inner.Dimensions()
}

// Close releases the cache.
func (m *MemoEmbedder) Close() {
	m.cache.Close()
}
