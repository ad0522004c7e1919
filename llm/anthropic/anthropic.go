// Package anthropic generates text with the Claude Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/becomeliminal/nim-memory/core"
	"github.com/becomeliminal/nim-memory/llm"
)

// Config configures the Claude generator.
type Config struct {
	// APIKey defaults to ANTHROPIC_API_KEY when empty.
	APIKey string

	// BaseURL overrides the API endpoint.
	BaseURL string

	// Model is the Claude model name.
	Model string

	// MaxTokens caps the reply (default: 1024).
	MaxTokens int

	// Temperature is the default sampling temperature.
	Temperature float64
}

// Generator calls client.Messages.New.
type Generator struct {
	client      anthropic.Client
	model       string
	maxTokens   int
	temperature float64
}

// New creates a Claude generator.
func New(cfg Config) *Generator {
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}
	return &Generator{
		client:      anthropic.NewClient(opts...),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// Generate returns the text blocks of Claude's reply, concatenated.
func (g *Generator) Generate(ctx context.Context, messages []core.Message, opts ...llm.CallOption) (string, error) {
	o := llm.ApplyOptions(opts)
	system, conversation := llm.SplitSystem(messages)

	if o.Schema != nil {
		raw, err := json.Marshal(o.Schema)
		if err != nil {
			return "", fmt.Errorf("encode schema: %w", err)
		}
		system = strings.TrimSpace(system + "\n\nRespond only with JSON matching this schema:\n" + string(raw))
	}

	maxTokens := g.maxTokens
	if o.MaxTokens > 0 {
		maxTokens = o.MaxTokens
	}
	temperature := g.temperature
	if o.Temperature != nil {
		temperature = *o.Temperature
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(g.model),
		MaxTokens:   int64(maxTokens),
		Messages:    toMessageParams(conversation),
		Temperature: anthropic.Float(temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("claude API error: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

func toMessageParams(messages []core.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == core.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(block))
		} else {
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}
