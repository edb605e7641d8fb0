package embedding

import (
	"context"
	"errors"
	"fmt"
)

// DefaultDimension is the vector size used when a provider does not specify one.
const DefaultDimension = 768

var (
	// ErrEmptyText is returned when there is nothing to embed.
	ErrEmptyText = errors.New("text must not be empty")
	// ErrRateLimited is returned when waiting for a rate limit token failed.
	ErrRateLimited = errors.New("rate limit wait failed")
)

// Provider turns text into a fixed-length vector.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// ProviderError is returned by providers on network, auth, quota or model failures.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

type named interface {
	Name() string
}

// NameOf returns the provider name used in logs and errors.
func NameOf(p Provider) string {
	if p == nil {
		return ""
	}
	if n, ok := p.(named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", p)
}
