// Package llm defines the text-generation contract consumed by the memory
// extractor. Providers live in subpackages.
package llm

import (
	"context"

	"github.com/becomeliminal/nim-memory/core"
)

// Generator turns a prompt into assistant text.
// Implementations: ollama (local models), anthropic (Claude).
type Generator interface {
	Generate(ctx context.Context, messages []core.Message, opts ...CallOption) (string, error)
}

// CallOptions tune a single generation call.
type CallOptions struct {
	// Temperature overrides the provider default when set.
	Temperature *float64

	// MaxTokens overrides the provider default when > 0.
	MaxTokens int

	// Schema asks for JSON output matching the schema. Providers without
	// structured output ignore it.
	Schema map[string]interface{}
}

// CallOption configures CallOptions.
type CallOption func(*CallOptions)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) CallOption {
	return func(o *CallOptions) {
		o.Temperature = &t
	}
}

// WithMaxTokens caps the generated length.
func WithMaxTokens(n int) CallOption {
	return func(o *CallOptions) {
		o.MaxTokens = n
	}
}

// WithSchema requests structured JSON output.
func WithSchema(schema map[string]interface{}) CallOption {
	return func(o *CallOptions) {
		o.Schema = schema
	}
}

// ApplyOptions folds opts into a CallOptions value.
func ApplyOptions(opts []CallOption) CallOptions {
	var o CallOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// SplitSystem separates system messages, joined by blank lines, from the
// conversation for providers that take the system prompt apart.
func SplitSystem(messages []core.Message) (string, []core.Message) {
	var (
		system string
		rest   []core.Message
	)
	for _, m := range messages {
		if m.Role == core.RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
