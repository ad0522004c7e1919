// Package ollama embeds text with a local Ollama server.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/ollama/ollama/api"
)

// Config configures the Ollama embedder.
type Config struct {
	// Host is the Ollama base URL. Empty uses OLLAMA_HOST or the default
	// local server.
	Host string

	// Model is the embedding model (default: nomic-embed-text).
	Model string

	// Dimensions is the expected vector size, used for zero vectors before
	// the first successful call (default: 768).
	Dimensions int
}

// Embedder calls the /api/embed endpoint.
type Embedder struct {
	client     *api.Client
	model      string
	mu         sync.RWMutex
	dimensions int
}

// New creates an Ollama embedder.
func New(cfg Config) (*Embedder, error) {
	if cfg.Model == "" {
		cfg.Model = "nomic-embed-text"
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 768
	}
	client, err := NewClient(cfg.Host)
	if err != nil {
		return nil, err
	}
	return &Embedder{client: client, model: cfg.Model, dimensions: cfg.Dimensions}, nil
}

// NewClient builds an Ollama API client for host, or from the environment
// when host is empty.
func NewClient(host string) (*api.Client, error) {
	if host == "" {
		client, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("ollama client: %w", err)
		}
		return client, nil
	}
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host %q: %w", host, err)
	}
	return api.NewClient(base, http.DefaultClient), nil
}

// Embed converts text to an embedding vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embed(ctx, &api.EmbedRequest{
		Model: e.model,
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("ollama embed: empty response for model %s", e.model)
	}

	vec := resp.Embeddings[0]
	e.mu.Lock()
	e.dimensions = len(vec)
	e.mu.Unlock()
	return vec, nil
}

// Dimensions returns the size of the last vector returned, or the
// configured size before the first call.
func (e *Embedder) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dimensions
}
