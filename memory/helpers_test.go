package memory_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/becomeliminal/nim-memory/core"
	"github.com/becomeliminal/nim-memory/memory"
	"github.com/becomeliminal/nim-memory/memory/embedder/mock"
)

// stepClock advances by one second on every reading.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

// memPersister keeps the last saved collection.
type memPersister struct {
	mu    sync.Mutex
	facts []core.Fact
	saves int
	err   error
}

func (p *memPersister) Load(ctx context.Context) ([]core.Fact, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]core.Fact(nil), p.facts...), nil
}

func (p *memPersister) Save(ctx context.Context, facts []core.Fact) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.saves++
	p.facts = facts
	return nil
}

// countingEmbedder wraps an embedder, counts calls and can be made to fail.
type countingEmbedder struct {
	mu    sync.Mutex
	inner memory.Embedder
	calls int
	fail  bool
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	fail := e.fail
	e.mu.Unlock()
	if fail {
		return nil, errors.New("embedding service unavailable")
	}
	return e.inner.Embed(ctx, text)
}

func (e *countingEmbedder) Dimensions() int {
	return e.inner.Dimensions()
}

func (e *countingEmbedder) setFail(fail bool) {
	e.mu.Lock()
	e.fail = fail
	e.mu.Unlock()
}

func (e *countingEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// fixedEmbedder returns a preset vector per text and fallback otherwise.
type fixedEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
}

func (e *fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return e.fallback, nil
}

func (e *fixedEmbedder) Dimensions() int {
	return len(e.fallback)
}

type harness struct {
	store     *memory.FactStore
	cache     *memory.EmbeddingCache
	persister *memPersister
	embedder  *countingEmbedder
	clock     *stepClock
}

func newHarness(inner memory.Embedder) *harness {
	if inner == nil {
		inner = mock.NewBagOfWords(512)
	}
	h := &harness{
		persister: &memPersister{},
		embedder:  &countingEmbedder{inner: inner},
		clock:     newStepClock(),
	}
	h.cache = memory.NewEmbeddingCache(h.embedder, nil)
	h.store = memory.NewFactStore(h.persister, core.DefaultVocabulary(), h.cache, memory.WithClock(h.clock.Now))
	return h
}

func (h *harness) manager(config *memory.Config) *memory.Manager {
	m, err := memory.NewManager(h.store, h.cache, h.embedder, config)
	if err != nil {
		panic(err)
	}
	return m
}
