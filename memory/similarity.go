package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/becomeliminal/nim-memory/core"
)

// CosineSimilarity returns the cosine of the angle between a and b.
// Vectors of different length, empty vectors and zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// LinearIndex scores a query against every stored vector.
type LinearIndex struct {
	mu      sync.RWMutex
	vectors map[string][]float32
}

// NewLinearIndex creates an empty exact-scan index.
func NewLinearIndex() *LinearIndex {
	return &LinearIndex{vectors: make(map[string][]float32)}
}

func (l *LinearIndex) Upsert(_ context.Context, id string, vector []float32) error {
	l.mu.Lock()
	l.vectors[id] = vector
	l.mu.Unlock()
	return nil
}

func (l *LinearIndex) Remove(_ context.Context, id string) error {
	l.mu.Lock()
	delete(l.vectors, id)
	l.mu.Unlock()
	return nil
}

func (l *LinearIndex) Score(_ context.Context, query []float32) (map[string]float64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	scores := make(map[string]float64, len(l.vectors))
	for id, v := range l.vectors {
		scores[id] = CosineSimilarity(query, v)
	}
	return scores, nil
}

// ScoredFact is a fact ranked against a query vector.
type ScoredFact struct {
	Fact  core.Fact `json:"fact"`
	Score float64   `json:"score"`
}

// Searcher ranks facts against a query vector.
type Searcher struct {
	cache *EmbeddingCache
}

// NewSearcher creates a searcher over the vectors held by cache.
func NewSearcher(cache *EmbeddingCache) *Searcher {
	return &Searcher{cache: cache}
}

// Search scores every fact against query and keeps those at or above
// threshold, best first. facts must be in recency order; equal scores keep
// that order. Missing vectors are generated before scoring.
func (s *Searcher) Search(ctx context.Context, facts []core.Fact, query []float32, threshold float64) ([]ScoredFact, error) {
	s.cache.EnsureAll(ctx, facts)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scores, err := s.cache.Index().Score(ctx, query)
	if err != nil {
		s.cache.logger.Warn("index scoring failed, scanning cached vectors", "error", err)
		scores = make(map[string]float64, len(facts))
		for _, f := range facts {
			if v, ok := s.cache.Vector(f.ID); ok {
				scores[f.ID] = CosineSimilarity(query, v)
			}
		}
	}

	var out []ScoredFact
	for _, f := range facts {
		score := scores[f.ID]
		if score >= threshold {
			out = append(out, ScoredFact{Fact: f, Score: score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out, nil
}
