package commands

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/becomeliminal/nim-memory/config"
	"github.com/becomeliminal/nim-memory/extract"
	"github.com/becomeliminal/nim-memory/llm"
	"github.com/becomeliminal/nim-memory/llm/anthropic"
	llmollama "github.com/becomeliminal/nim-memory/llm/ollama"
	"github.com/becomeliminal/nim-memory/memory"
	"github.com/becomeliminal/nim-memory/memory/embedder/memo"
	"github.com/becomeliminal/nim-memory/memory/embedder/mock"
	"github.com/becomeliminal/nim-memory/memory/embedder/ollama"
	"github.com/becomeliminal/nim-memory/memory/index/chromem"
	"github.com/becomeliminal/nim-memory/memory/persist/jsonfile"
	"github.com/becomeliminal/nim-memory/memory/persist/sqlite"
)

// runtime is the composition root: one store, cache and manager shared by
// everything the process serves.
type runtime struct {
	store     *memory.FactStore
	cache     *memory.EmbeddingCache
	manager   *memory.Manager
	extractor *extract.LLMExtractor
	closers   []func() error
}

func newRuntime(ctx context.Context, c *config.Config) (*runtime, error) {
	rt := &runtime{}
	logger := log.Default().WithPrefix("memory")

	embedder, err := rt.buildEmbedder(c.Embedding)
	if err != nil {
		rt.Close()
		return nil, err
	}
	index, err := buildIndex(c.Embedding)
	if err != nil {
		rt.Close()
		return nil, err
	}
	persister, err := rt.buildPersister(ctx, c)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.cache = memory.NewEmbeddingCache(embedder, index, memory.WithLogger(logger))
	rt.store = memory.NewFactStore(persister, &c.Vocabulary, rt.cache, memory.WithLogger(logger))
	if err := rt.store.Load(ctx); err != nil {
		rt.Close()
		return nil, err
	}
	rt.manager, err = memory.NewManager(rt.store, rt.cache, embedder, c.ManagerConfig(), memory.WithLogger(logger))
	if err != nil {
		rt.Close()
		return nil, err
	}

	generator, err := buildGenerator(c.Generation)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.extractor = extract.New(generator, c.Vocabulary.Generic())
	return rt, nil
}

// Close releases backends in reverse order of creation.
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			log.Warn("failed to close resource", "error", err)
		}
	}
	rt.closers = nil
}

func (rt *runtime) buildEmbedder(c config.EmbeddingConfig) (memory.Embedder, error) {
	var (
		embedder memory.Embedder
		err      error
	)
	switch c.Provider {
	case "", "bow":
		embedder = mock.NewBagOfWords(c.Dimensions)
	case "mock":
		embedder = mock.New()
	case "ollama":
		embedder, err = ollama.New(ollama.Config{Host: c.Host, Model: c.Model, Dimensions: c.Dimensions})
	case "onnx":
		var closer func() error
		embedder, closer, err = newONNXEmbedder(c)
		if closer != nil {
			rt.closers = append(rt.closers, closer)
		}
	default:
		err = fmt.Errorf("unknown embedding provider %q", c.Provider)
	}
	if err != nil {
		return nil, err
	}

	if c.CacheSize <= 0 {
		return embedder, nil
	}
	memoized, err := memo.New(embedder, c.CacheSize)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, func() error { memoized.Close(); return nil })
	return memoized, nil
}

func buildIndex(c config.EmbeddingConfig) (memory.VectorIndex, error) {
	switch c.Index {
	case "", "linear":
		return memory.NewLinearIndex(), nil
	case "chromem":
		return chromem.New(0)
	default:
		return nil, fmt.Errorf("unknown vector index %q", c.Index)
	}
}

func (rt *runtime) buildPersister(ctx context.Context, c *config.Config) (memory.Persister, error) {
	switch c.Storage.Backend {
	case "", "json":
		return jsonfile.New(c.Storage.Path, &c.Vocabulary), nil
	case "sqlite":
		p, err := sqlite.Open(ctx, c.Storage.Path)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, p.Close)
		return p, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
}

func buildGenerator(c config.GenerationConfig) (llm.Generator, error) {
	switch c.Provider {
	case "", "ollama":
		client, err := ollama.NewClient(c.Host)
		if err != nil {
			return nil, err
		}
		return llmollama.New(client, llmollama.Config{
			Model:       c.Model,
			Temperature: c.Temperature,
			MaxTokens:   c.MaxTokens,
		}), nil
	case "anthropic":
		return anthropic.New(anthropic.Config{
			APIKey:      c.APIKey,
			Model:       c.Model,
			MaxTokens:   c.MaxTokens,
			Temperature: c.Temperature,
		}), nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", c.Provider)
	}
}
