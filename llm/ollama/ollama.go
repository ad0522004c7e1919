// Package ollama generates text with a local Ollama server.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/becomeliminal/nim-memory/core"
	"github.com/becomeliminal/nim-memory/llm"
)

// Config configures the Ollama generator.
type Config struct {
	// Model is the chat model (default: llama3.2).
	Model string

	// Temperature is the default sampling temperature.
	Temperature float64

	// MaxTokens caps generated tokens (num_predict); 0 leaves the model default.
	MaxTokens int
}

// Generator calls the /api/chat endpoint without streaming.
type Generator struct {
	client      *api.Client
	model       string
	temperature float64
	maxTokens   int
}

// New creates a generator on client.
func New(client *api.Client, cfg Config) *Generator {
	if cfg.Model == "" {
		cfg.Model = "llama3.2"
	}
	return &Generator{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// Generate returns the assistant reply to messages.
func (g *Generator) Generate(ctx context.Context, messages []core.Message, opts ...llm.CallOption) (string, error) {
	o := llm.ApplyOptions(opts)

	temperature := g.temperature
	if o.Temperature != nil {
		temperature = *o.Temperature
	}
	options := map[string]interface{}{"temperature": temperature}
	if n := firstPositive(o.MaxTokens, g.maxTokens); n > 0 {
		options["num_predict"] = n
	}

	msgs := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, api.Message{Role: m.Role, Content: m.Content})
	}

	stream := false
	req := &api.ChatRequest{
		Model:    g.model,
		Messages: msgs,
		Stream:   &stream,
		Options:  options,
	}
	if o.Schema != nil {
		raw, err := json.Marshal(o.Schema)
		if err != nil {
			return "", fmt.Errorf("encode schema: %w", err)
		}
		req.Format = raw
	}

	var sb strings.Builder
	err := g.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	return sb.String(), nil
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
