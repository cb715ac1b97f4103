// Package llm provides AI-assisted text processing for the idea agents.
package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"
)

// Provider defines the interface for LLM providers (OpenAI, Anthropic, etc.)
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string, options CompletionOptions) (string, error)
	IsAvailable() bool
}

// CompletionOptions configures LLM completion requests
type CompletionOptions struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Format      string  `json:"format"` // "json" or "text"
}

// ModelProvider adapts a langchaingo model to Provider.
type ModelProvider struct {
	name  string
	model llms.Model
}

// NewModelProvider wraps an existing langchaingo model.
func NewModelProvider(name string, model llms.Model) *ModelProvider {
	return &ModelProvider{name: name, model: model}
}

// NewAnthropicProvider creates a Claude-backed provider.
func NewAnthropicProvider(apiKey, model string) (*ModelProvider, error) {
	client, err := anthropic.New(
		anthropic.WithToken(apiKey),
		anthropic.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating anthropic client: %w", err)
	}
	return NewModelProvider("anthropic", client), nil
}

// NewOpenAIProvider creates an OpenAI-backed provider. baseURL may point at
// any OpenAI-compatible endpoint.
func NewOpenAIProvider(apiKey, model, baseURL string) (*ModelProvider, error) {
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}
	return NewModelProvider("openai", client), nil
}

func (p *ModelProvider) Name() string { return p.name }

func (p *ModelProvider) IsAvailable() bool { return p.model != nil }

// Complete sends prompt as a single human message.
func (p *ModelProvider) Complete(ctx context.Context, prompt string, options CompletionOptions) (string, error) {
	var callOpts []llms.CallOption
	if options.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(options.Temperature))
	}
	if options.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(options.MaxTokens))
	}
	if options.Format == "json" && p.name == "openai" {
		callOpts = append(callOpts, llms.WithJSONMode())
	}

	out, err := llms.GenerateFromSinglePrompt(ctx, p.model, prompt, callOpts...)
	if err != nil {
		return "", fmt.Errorf("%s completion: %w", p.name, err)
	}
	return out, nil
}
