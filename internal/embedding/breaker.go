package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	defaultMaxFailures = 5
	defaultOpenTimeout = 30 * time.Second
)

// BreakerConfig controls when a failing provider is short-circuited.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the breaker.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

type breakerProvider struct {
	next    Provider
	name    string
	breaker *gobreaker.CircuitBreaker
}

// WithBreaker wraps p with a circuit breaker. While the breaker is open Embed
// fails immediately, so callers reach their fallback without waiting on a
// dead provider.
func WithBreaker(p Provider, cfg BreakerConfig, logger *zap.Logger) Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = defaultMaxFailures
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = defaultOpenTimeout
	}

	name := NameOf(p)
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("embedding provider breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: countsAsSuccess,
	}

	return &breakerProvider{
		next:    p,
		name:    name,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

func (b *breakerProvider) Name() string { return b.name }

func (b *breakerProvider) Dimension() int { return b.next.Dimension() }

func (b *breakerProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := b.breaker.Execute(func() (interface{}, error) {
		return b.next.Embed(ctx, text)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &ProviderError{Provider: b.name, Op: "embed", Err: err}
		}
		return nil, err
	}

	vec, ok := res.([]float32)
	if !ok {
		return nil, &ProviderError{Provider: b.name, Op: "embed", Err: fmt.Errorf("unexpected result type %T", res)}
	}
	return vec, nil
}

// countsAsSuccess keeps caller-side errors from tripping the breaker. Only
// failures of the provider itself count towards MaxFailures.
func countsAsSuccess(err error) bool {
	return err == nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, ErrEmptyText) ||
		errors.Is(err, ErrRateLimited)
}
