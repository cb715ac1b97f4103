package llm

import (
	"context"
	"strings"

	"go.uber.org/zap"

	pkgerrors "dreamcatcher/pkg/errors"
)

// FallbackProvider tries each provider in order until one succeeds.
type FallbackProvider struct {
	providers []Provider
	logger    *zap.Logger
}

// NewFallbackProvider creates a provider chain. Nil entries are skipped.
func NewFallbackProvider(logger *zap.Logger, providers ...Provider) *FallbackProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	fp := &FallbackProvider{logger: logger}
	for _, p := range providers {
		if p != nil {
			fp.providers = append(fp.providers, p)
		}
	}
	return fp
}

// Name lists the chain, e.g. "anthropic>openai".
func (f *FallbackProvider) Name() string {
	names := make([]string, len(f.providers))
	for i, p := range f.providers {
		names[i] = p.Name()
	}
	return strings.Join(names, ">")
}

// Active returns the name of the first available provider, or "".
func (f *FallbackProvider) Active() string {
	for _, p := range f.providers {
		if p.IsAvailable() {
			return p.Name()
		}
	}
	return ""
}

func (f *FallbackProvider) IsAvailable() bool {
	return f.Active() != ""
}

func (f *FallbackProvider) Complete(ctx context.Context, prompt string, options CompletionOptions) (string, error) {
	var lastErr error
	for _, p := range f.providers {
		if !p.IsAvailable() {
			continue
		}
		out, err := p.Complete(ctx, prompt, options)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return "", err
		}
		f.logger.Warn("LLM provider failed, trying next",
			zap.String("provider", p.Name()),
			zap.Error(err),
		)
		lastErr = err
	}
	if lastErr != nil {
		return "", pkgerrors.Wrap(lastErr, "all LLM providers failed")
	}
	return "", pkgerrors.NewUnavailable("llm")
}
