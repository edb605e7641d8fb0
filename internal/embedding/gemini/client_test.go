package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/spigell/carbon-match/internal/embedding"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type embedCallRecord struct {
	model  string
	text   string
	config *genai.EmbedContentConfig
}

type fakeEmbedResponse struct {
	resp *genai.EmbedContentResponse
	err  error
}

type fakeModels struct {
	mu    sync.Mutex
	calls []embedCallRecord
	queue []fakeEmbedResponse
}

func (f *fakeModels) enqueue(resp *genai.EmbedContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, fakeEmbedResponse{resp: resp, err: err})
}

func (f *fakeModels) EmbedContent(_ context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	text := ""
	if len(contents) > 0 && contents[0] != nil && len(contents[0].Parts) > 0 {
		text = contents[0].Parts[0].Text
	}
	f.calls = append(f.calls, embedCallRecord{model: model, text: text, config: config})

	if len(f.queue) == 0 {
		return nil, errors.New("unexpected call")
	}
	res := f.queue[0]
	f.queue = f.queue[1:]
	return res.resp, res.err
}

func vectorResponse(values ...float32) *genai.EmbedContentResponse {
	return &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: values}},
	}
}

func newTestEmbedder(models *fakeModels, dimension, maxRetries int) *Embedder {
	e := newEmbedder(models, Config{Model: "embed-test", Dimension: dimension, MaxRetries: maxRetries}, zap.NewNop())
	e.retryDelay = 0
	return e
}

func TestEmbedderReturnsValues(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(vectorResponse(0.1, 0.2, 0.3), nil)

	e := newTestEmbedder(models, 3, 1)

	vec, err := e.Embed(context.Background(), "  carbon removal  ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(vec) != 3 || vec[2] != 0.3 {
		t.Fatalf("unexpected vector: %v", vec)
	}

	if len(models.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(models.calls))
	}

	call := models.calls[0]
	if call.model != "embed-test" {
		t.Fatalf("unexpected model: %q", call.model)
	}
	if call.text != "carbon removal" {
		t.Fatalf("expected trimmed text, got %q", call.text)
	}
	if call.config == nil || call.config.OutputDimensionality == nil || *call.config.OutputDimensionality != 3 {
		t.Fatalf("expected output dimensionality 3, got %+v", call.config)
	}
}

func TestEmbedderRetriesOnTemporaryError(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"})
	models.enqueue(vectorResponse(1, 0), nil)

	e := newTestEmbedder(models, 2, 2)

	vec, err := e.Embed(context.Background(), "text")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(vec) != 2 {
		t.Fatalf("unexpected vector: %v", vec)
	}
	if len(models.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.calls))
	}
}

func TestEmbedderStopsAfterRetriesExhausted(t *testing.T) {
	models := &fakeModels{}
	tempErr := genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
	models.enqueue(nil, tempErr)
	models.enqueue(nil, tempErr)

	e := newTestEmbedder(models, 2, 2)

	_, err := e.Embed(context.Background(), "text")
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}

	var perr *embedding.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected provider error, got %T", err)
	}
	if perr.Provider != "gemini" {
		t.Fatalf("unexpected provider: %q", perr.Provider)
	}

	if len(models.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.calls))
	}
}

func TestEmbedderDoesNotRetryOnLongQuotaDelay(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry after 60 seconds",
	})

	e := newTestEmbedder(models, 2, 3)

	if _, err := e.Embed(context.Background(), "text"); err == nil {
		t.Fatal("expected error when quota delay too long")
	}

	if len(models.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(models.calls))
	}
}

func TestEmbedderDoesNotRetryPermanentError(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusUnauthorized, Status: "UNAUTHENTICATED"})

	e := newTestEmbedder(models, 2, 3)

	if _, err := e.Embed(context.Background(), "text"); err == nil {
		t.Fatal("expected auth error")
	}

	if len(models.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(models.calls))
	}
}

func TestEmbedderRejectsWrongDimension(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(vectorResponse(1, 2, 3, 4), nil)

	e := newTestEmbedder(models, 3, 1)

	if _, err := e.Embed(context.Background(), "text"); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestEmbedderRejectsEmptyText(t *testing.T) {
	models := &fakeModels{}
	e := newTestEmbedder(models, 3, 1)

	_, err := e.Embed(context.Background(), "   ")
	if !errors.Is(err, embedding.ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
	if len(models.calls) != 0 {
		t.Fatalf("expected no api calls, got %d", len(models.calls))
	}
}

func TestEmbedderStopsRetryingWhenContextDone(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusInternalServerError})
	models.enqueue(vectorResponse(1, 0), nil)

	e := newTestEmbedder(models, 2, 2)
	e.retryDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := e.Embed(ctx, "text"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestQuotaDelay(t *testing.T) {
	tests := []struct {
		message string
		expect  time.Duration
	}{
		{message: "quota exhausted, retry after 60 seconds", expect: 60 * time.Second},
		{message: "Please retry in 1.5s.", expect: 1500 * time.Millisecond},
		{message: "resource exhausted", expect: 0},
	}

	for _, tt := range tests {
		if got := quotaDelay(tt.message); got != tt.expect {
			t.Fatalf("quotaDelay(%q) = %v, want %v", tt.message, got, tt.expect)
		}
	}
}
