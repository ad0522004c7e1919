package memory

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/becomeliminal/nim-memory/core"
)

// Embedder converts text to vector embeddings.
// Implementations: mock (testing), ollama (local server), onnx (in-process model).
type Embedder interface {
	// Embed converts a single text to embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns embedding vector size.
	Dimensions() int
}

// Persister is the durable representation of the fact collection.
// Save always receives the complete collection; there are no partial writes.
type Persister interface {
	// Load returns every stored fact in the current shape. Older on-disk
	// shapes are translated by the implementation.
	Load(ctx context.Context) ([]core.Fact, error)

	// Save overwrites the stored collection with facts.
	Save(ctx context.Context, facts []core.Fact) error
}

// VectorIndex scores query vectors against the vectors of live facts.
// Implementations: LinearIndex (exact scan), index/chromem.
type VectorIndex interface {
	// Upsert stores or replaces the vector for id.
	Upsert(ctx context.Context, id string, vector []float32) error

	// Remove drops id from the index. Removing an unknown id is not an error.
	Remove(ctx context.Context, id string) error

	// Score returns the cosine similarity of query with every indexed vector.
	// Ids that cannot be scored (zero vector, other dimensions) may be
	// omitted; callers treat a missing id as score 0.
	Score(ctx context.Context, query []float32) (map[string]float64, error)
}

type options struct {
	logger *log.Logger
	now    func() time.Time
}

// Option configures the components of this package.
type Option func(*options)

// WithLogger sets the logger used by a component.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithClock overrides the time source used for fact timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(prefix string, opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.Default().WithPrefix(prefix)
	}
	return o
}

// truncateLog truncates text for logging.
func truncateLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
