package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"dreamcatcher/infrastructure/observability"
	pkgerrors "dreamcatcher/pkg/errors"
)

// GuardConfig holds the rate limit and circuit breaker settings for a provider.
type GuardConfig struct {
	RequestsPerSec   float64
	Burst            int
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
	Cooldown         time.Duration
}

// DefaultGuardConfig returns conservative defaults.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		RequestsPerSec:   1,
		Burst:            3,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
		Cooldown:         60 * time.Second,
	}
}

// GuardedProvider throttles and circuit-breaks calls to another provider.
type GuardedProvider struct {
	inner   Provider
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
	metrics *observability.Collector
	logger  *zap.Logger
}

// NewGuardedProvider wraps inner.
func NewGuardedProvider(inner Provider, cfg GuardConfig, metrics *observability.Collector, logger *zap.Logger) *GuardedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.RequestsPerSec > 0 {
		limit = rate.Limit(cfg.RequestsPerSec)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: 1,
		Interval:    2 * cfg.Cooldown,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("LLM circuit breaker state changed",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// Caller cancellations say nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &GuardedProvider{
		inner:   inner,
		limiter: rate.NewLimiter(limit, burst),
		breaker: breaker,
		timeout: cfg.Timeout,
		metrics: metrics,
		logger:  logger,
	}
}

func (g *GuardedProvider) Name() string { return g.inner.Name() }

// IsAvailable is false while the breaker is open.
func (g *GuardedProvider) IsAvailable() bool {
	return g.inner.IsAvailable() && g.breaker.State() != gobreaker.StateOpen
}

func (g *GuardedProvider) Complete(ctx context.Context, prompt string, options CompletionOptions) (out string, err error) {
	ctx, span := observability.StartSpan(ctx, "llm.complete",
		attribute.String("llm.provider", g.inner.Name()),
		attribute.Int("llm.max_tokens", options.MaxTokens),
	)
	defer func() { observability.EndSpan(span, err) }()

	if err := g.limiter.Wait(ctx); err != nil {
		return "", pkgerrors.NewRateLimit(int(g.limiter.Limit()), "1s").WithCause(err)
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	res, execErr := g.breaker.Execute(func() (interface{}, error) {
		return g.inner.Complete(ctx, prompt, options)
	})
	g.metrics.RecordLLMCall(g.inner.Name(), execErr, time.Since(start))

	switch {
	case errors.Is(execErr, gobreaker.ErrOpenState), errors.Is(execErr, gobreaker.ErrTooManyRequests):
		return "", pkgerrors.NewUnavailable(g.inner.Name()).WithCode(pkgerrors.CodeCircuitOpen).WithCause(execErr)
	case errors.Is(execErr, context.DeadlineExceeded):
		return "", pkgerrors.NewTimeout(g.inner.Name() + " completion").WithCause(execErr)
	case execErr != nil:
		return "", pkgerrors.NewExternal(g.inner.Name(), execErr)
	}
	return res.(string), nil
}
