// Package chromem implements memory.VectorIndex on top of chromem-go, a pure
// Go embedded vector database.
package chromem

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	chromem "github.com/philippgille/chromem-go"
)

// Index keeps one vector per fact id in a chromem-go collection.
//
// chromem-go rejects queries whose dimension differs from the stored
// documents and cannot normalize zero vectors, so such vectors are kept out
// of the collection; the caller scores absent ids as 0.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
	dimensions int
	mu         sync.RWMutex
	logger     *log.Logger
}

// New creates an in-memory index. dimensions is the only vector size
// accepted; 0 adopts the size of the first non-zero vector inserted.
func New(dimensions int) (*Index, error) {
	db := chromem.NewDB()

	col, err := db.CreateCollection(
		"facts",
		nil, // No metadata
		nil, // No embedding func (we provide embeddings)
	)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &Index{
		db:         db,
		collection: col,
		dimensions: dimensions,
		logger:     log.Default().WithPrefix("chromem"),
	}, nil
}

// Upsert stores the vector for id, replacing any previous one.
func (x *Index) Upsert(ctx context.Context, id string, vector []float32) error {
	if !x.accepts(vector) {
		x.logger.Debug("not indexing vector", "id", id, "dimensions", len(vector))
		return x.Remove(ctx, id)
	}

	doc := chromem.Document{
		ID:        id,
		Embedding: append([]float32(nil), vector...),
	}
	if err := x.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	return nil
}

// Remove deletes id from the collection.
func (x *Index) Remove(ctx context.Context, id string) error {
	if err := x.collection.Delete(ctx, nil, nil, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// Score returns the cosine similarity of query with every indexed vector.
// A query of the wrong dimension or a zero query scores nothing.
func (x *Index) Score(ctx context.Context, query []float32) (map[string]float64, error) {
	n := x.collection.Count()
	scores := make(map[string]float64, n)
	if n == 0 || !x.matches(query) {
		return scores, nil
	}

	// chromem-go requires nResults <= collection size
	results, err := x.collection.QueryEmbedding(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}
	for _, r := range results {
		scores[r.ID] = float64(r.Similarity)
	}
	x.logger.Debug("scored vectors", "count", len(results))
	return scores, nil
}

// Dimensions returns the vector size the index accepts, 0 when not yet known.
func (x *Index) Dimensions() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.dimensions
}

// accepts reports whether vector can be stored, adopting its size when the
// index has none yet.
func (x *Index) accepts(vector []float32) bool {
	if isZero(vector) {
		return false
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.dimensions == 0 {
		x.dimensions = len(vector)
	}
	return len(vector) == x.dimensions
}

func (x *Index) matches(query []float32) bool {
	if isZero(query) {
		return false
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(query) == x.dimensions
}

func isZero(v []float32) bool {
	for _, f := range v {
		if f != 0 {
			return false
		}
	}
	return true
}
