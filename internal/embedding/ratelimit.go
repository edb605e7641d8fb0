package embedding

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

type limitedProvider struct {
	next    Provider
	name    string
	limiter *rate.Limiter
}

// WithRateLimit throttles calls to p to rps requests per second. Waiting for a
// token is bounded by the caller's context. A non-positive rps disables the limit.
func WithRateLimit(p Provider, rps float64, burst int) Provider {
	if rps <= 0 {
		return p
	}
	if burst <= 0 {
		burst = 1
	}

	return &limitedProvider{
		next:    p,
		name:    NameOf(p),
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (l *limitedProvider) Name() string { return l.name }

func (l *limitedProvider) Dimension() int { return l.next.Dimension() }

func (l *limitedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, &ProviderError{Provider: l.name, Op: "rate limit", Err: fmt.Errorf("%w: %w", ErrRateLimited, err)}
	}
	return l.next.Embed(ctx, text)
}
