package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spigell/carbon-match/internal/embedding"
	"github.com/spigell/carbon-match/internal/logger"
	"github.com/spigell/carbon-match/internal/utils"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	providerName = "gemini"

	defaultModel        = "gemini-embedding-001"
	defaultMaxLogLength = 200
	defaultRetryDelay   = 500 * time.Millisecond
	// Quota errors asking to wait longer than this are not retried.
	maxQuotaDelay = 10 * time.Second
)

var retryAfterPattern = regexp.MustCompile(`(?i)retry (?:after|in) ([0-9]+(?:\.[0-9]+)?)\s*s`)

// contentEmbedder is the subset of genai.Models used by the Embedder.
type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Config holds Gemini embedding settings.
type Config struct {
	APIKey       string
	Model        string
	Dimension    int
	MaxRetries   int
	MaxLogLength int
}

// Embedder produces text embeddings with the Gemini API.
type Embedder struct {
	models     contentEmbedder
	model      string
	dimension  int
	maxRetries int
	maxLogLen  int
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewEmbedder creates an Embedder configured for the Gemini API backend.
func NewEmbedder(ctx context.Context, cfg Config, log *zap.Logger) (*Embedder, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newEmbedder(client.Models, cfg, log), nil
}

func newEmbedder(models contentEmbedder, cfg Config, log *zap.Logger) *Embedder {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = embedding.DefaultDimension
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	maxLogLen := cfg.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	return &Embedder{
		models:     models,
		model:      model,
		dimension:  dimension,
		maxRetries: maxRetries,
		maxLogLen:  maxLogLen,
		retryDelay: defaultRetryDelay,
		logger:     logger.WithCommonFields(log, providerName, model),
	}
}

func (e *Embedder) Name() string { return providerName }

func (e *Embedder) Dimension() int { return e.dimension }

// Embed returns the embedding of text. Temporary API errors are retried up to
// MaxRetries attempts in total, but never past the context deadline.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e == nil || e.models == nil {
		return nil, e.fail(errors.New("gemini embedder is not initialized"))
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, e.fail(embedding.ErrEmptyText)
	}

	e.logger.Debug("gemini embed content request",
		zap.Int("text_length", utf8.RuneCountInString(text)),
		zap.String("text_preview", utils.TruncateForLog(text, e.maxLogLen)),
	)

	for attempt := 1; ; attempt++ {
		started := time.Now()
		vec, err := e.embedOnce(ctx, text)
		if err == nil {
			e.logger.Debug("gemini embed content response",
				zap.Int("dimension", len(vec)),
				zap.Int("attempt", attempt),
				zap.Duration("elapsed", time.Since(started)),
			)
			return vec, nil
		}

		if attempt >= e.maxRetries || !isTemporary(err) {
			return nil, e.fail(err)
		}

		delay := e.retryDelay * time.Duration(attempt)
		e.logger.Warn("gemini embed content failed, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
		)

		if err := utils.WaitFor(ctx, delay); err != nil {
			return nil, e.fail(err)
		}
	}
}

func (e *Embedder) embedOnce(ctx context.Context, text string) ([]float32, error) {
	dimension := int32(e.dimension)
	resp, err := e.models.EmbedContent(ctx, e.model, genai.Text(text), &genai.EmbedContentConfig{
		OutputDimensionality: &dimension,
	})
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}

	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, errors.New("gemini api returned empty embedding")
	}

	values := resp.Embeddings[0].Values
	if len(values) != e.dimension {
		return nil, fmt.Errorf("gemini api returned %d dimensions, want %d", len(values), e.dimension)
	}

	return values, nil
}

func (e *Embedder) fail(err error) error {
	return &embedding.ProviderError{Provider: providerName, Op: "embed", Err: err}
}

func isTemporary(err error) bool {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		return quotaDelay(apiErr.Message) <= maxQuotaDelay
	case apiErr.Code >= http.StatusInternalServerError:
		return true
	default:
		return false
	}
}

func quotaDelay(message string) time.Duration {
	match := retryAfterPattern.FindStringSubmatch(message)
	if len(match) != 2 {
		return 0
	}

	seconds, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0
	}

	return time.Duration(seconds * float64(time.Second))
}
