package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spigell/carbon-match/internal/embedding"
	"github.com/spigell/carbon-match/internal/embedding/gemini"
	"github.com/spigell/carbon-match/internal/logger"
	"github.com/spigell/carbon-match/internal/metrics"
	"github.com/spigell/carbon-match/internal/scoring"
	"github.com/spigell/carbon-match/internal/secrets"

	"go.uber.org/zap"
)

const (
	providerGemini = "gemini"
	providerHash   = "hash"
	providerNone   = "none"
)

// newEngine wires the scoring engine. A provider that cannot be built is
// logged and skipped: alignment then runs on the hash fallback only.
func newEngine(ctx context.Context, cfg *EmbeddingConfig, log *zap.Logger, reg *metrics.Registry) *scoring.Engine {
	sinks := []scoring.Sink{logger.NewSink(log)}
	if reg != nil {
		sinks = append(sinks, reg)
	}

	opts := []scoring.Option{
		scoring.WithSink(scoring.MultiSink(sinks...)),
		scoring.WithTimeout(cfg.Timeout),
	}

	provider, err := newProvider(ctx, cfg, log)
	if err != nil {
		log.Warn("embedding provider is unavailable, goal alignment will use hash embeddings",
			zap.Error(err),
			zap.String("hint", "set embedding.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY"),
		)
	}
	if provider != nil {
		opts = append(opts, scoring.WithProvider(provider))
		log.Info("embedding provider configured",
			zap.String(logger.FieldProvider, embedding.NameOf(provider)),
			zap.Int("dimension", provider.Dimension()),
		)
	}

	return scoring.New(opts...)
}

func newProvider(ctx context.Context, cfg *EmbeddingConfig, log *zap.Logger) (embedding.Provider, error) {
	switch strings.TrimSpace(strings.ToLower(cfg.Provider)) {
	case providerNone:
		return nil, nil
	case providerHash:
		return embedding.NewHashEmbedder(cfg.Dimension), nil
	case "", providerGemini:
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}

	if cfg.Gemini == nil {
		cfg.Gemini = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.Gemini.APIKeyFile,
		Value: cfg.Gemini.APIKey,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, err
	}

	embedder, err := gemini.NewEmbedder(ctx, gemini.Config{
		APIKey:       apiKey,
		Model:        cfg.Gemini.Model,
		Dimension:    cfg.Dimension,
		MaxRetries:   cfg.Gemini.MaxRetries,
		MaxLogLength: cfg.Gemini.MaxLogLength,
	}, log)
	if err != nil {
		return nil, err
	}

	var provider embedding.Provider = embedder
	if cfg.RateLimit != nil {
		provider = embedding.WithRateLimit(provider, cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}
	if cfg.Breaker != nil {
		provider = embedding.WithBreaker(provider, embedding.BreakerConfig{
			MaxFailures: cfg.Breaker.MaxFailures,
			OpenTimeout: cfg.Breaker.OpenTimeout,
		}, log)
	}

	return provider, nil
}
