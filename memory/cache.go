package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/becomeliminal/nim-memory/core"
)

// CacheStatus is a diagnostic view of the embedding cache.
type CacheStatus struct {
	TotalFacts      int `json:"totalFacts"`
	CachedVectors   int `json:"cachedVectors"`
	MissingVectors  int `json:"missingVectors"`
	DegradedVectors int `json:"degradedVectors"`
}

type cacheEntry struct {
	hash     string
	vector   []float32
	degraded bool // embedder failed, vector is all zeros
}

// EmbeddingCache associates each live fact id with the vector of its current
// content. An entry is coherent while the hash of the fact's text matches
// the hash it was computed from.
type EmbeddingCache struct {
	mu       sync.RWMutex
	entries  map[string]cacheEntry
	embedder Embedder
	index    VectorIndex
	logger   *log.Logger
}

// NewEmbeddingCache creates an empty cache that mirrors every vector into
// index. A nil index uses a LinearIndex.
func NewEmbeddingCache(embedder Embedder, index VectorIndex, opts ...Option) *EmbeddingCache {
	o := buildOptions("memory", opts)
	if index == nil {
		index = NewLinearIndex()
	}
	return &EmbeddingCache{
		entries:  make(map[string]cacheEntry),
		embedder: embedder,
		index:    index,
		logger:   o.logger,
	}
}

// Index returns the vector index the cache writes to.
func (c *EmbeddingCache) Index() VectorIndex {
	return c.index
}

// Ensure returns the vector for fact, embedding it when no coherent entry
// exists. It never fails: when the embedder errors, a zero vector is cached
// and a warning is logged.
func (c *EmbeddingCache) Ensure(ctx context.Context, fact core.Fact) []float32 {
	hash := contentHash(fact)

	c.mu.RLock()
	e, ok := c.entries[fact.ID]
	c.mu.RUnlock()
	if ok && e.hash == hash {
		return e.vector
	}
	return c.regenerate(ctx, fact, hash)
}

// EnsureAll ensures a vector for every fact and returns how many were
// (re)generated.
func (c *EmbeddingCache) EnsureAll(ctx context.Context, facts []core.Fact) int {
	n := 0
	for _, f := range facts {
		if ctx.Err() != nil {
			break
		}
		if c.coherent(f) {
			continue
		}
		c.regenerate(ctx, f, contentHash(f))
		n++
	}
	return n
}

// RegenerateDegraded retries the embedder for facts whose cached vector is
// a zero vector left by an earlier failure.
func (c *EmbeddingCache) RegenerateDegraded(ctx context.Context, facts []core.Fact) int {
	n := 0
	for _, f := range facts {
		if ctx.Err() != nil {
			break
		}
		c.mu.RLock()
		e, ok := c.entries[f.ID]
		c.mu.RUnlock()
		if ok && !e.degraded {
			continue
		}
		vec := c.regenerate(ctx, f, contentHash(f))
		if !isZero(vec) {
			n++
		}
	}
	return n
}

// Invalidate drops the cached vector of id.
func (c *EmbeddingCache) Invalidate(ctx context.Context, id string) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()

	if err := c.index.Remove(ctx, id); err != nil {
		c.logger.Warn("failed to remove vector from index", "id", id, "error", err)
	}
}

// Vector returns the cached vector of id, coherent or not.
func (c *EmbeddingCache) Vector(id string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	return e.vector, ok
}

// Status counts, for the given live facts, how many have a coherent vector.
func (c *EmbeddingCache) Status(facts []core.Fact) CacheStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	st := CacheStatus{TotalFacts: len(facts)}
	for _, f := range facts {
		e, ok := c.entries[f.ID]
		if !ok || e.hash != contentHash(f) {
			continue
		}
		st.CachedVectors++
		if e.degraded {
			st.DegradedVectors++
		}
	}
	st.MissingVectors = st.TotalFacts - st.CachedVectors
	return st
}

func (c *EmbeddingCache) coherent(f core.Fact) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[f.ID]
	return ok && e.hash == contentHash(f)
}

func (c *EmbeddingCache) regenerate(ctx context.Context, fact core.Fact, hash string) []float32 {
	vec, err := c.embedder.Embed(ctx, fact.Text())
	degraded := false
	if err != nil || len(vec) == 0 {
		c.logger.Warn("embedding failed, caching zero vector", "id", fact.ID, "text", truncateLog(fact.Text(), 50), "error", err)
		vec = make([]float32, c.embedder.Dimensions())
		degraded = true
	}

	c.mu.Lock()
	c.entries[fact.ID] = cacheEntry{hash: hash, vector: vec, degraded: degraded}
	c.mu.Unlock()

	if err := c.index.Upsert(ctx, fact.ID, vec); err != nil {
		c.logger.Warn("failed to index vector", "id", fact.ID, "error", err)
	}
	return vec
}

func contentHash(f core.Fact) string {
	sum := sha256.Sum256([]byte(f.Text()))
	return hex.EncodeToString(sum[:])
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
