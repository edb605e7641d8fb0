package scoring

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/spigell/carbon-match/internal/embedding"

	"golang.org/x/sync/errgroup"
)

// DescriptionPair holds the free-text descriptions compared by Alignment.
type DescriptionPair struct {
	Funder string
	Fundee string
}

// Alignment scores semantic similarity of the two descriptions as
// (cosine + 1) / 2 * 100. Both texts are embedded concurrently and
// independently; a text whose provider call fails or times out gets the
// deterministic fallback vector instead, so Alignment never fails.
func (e *Engine) Alignment(ctx context.Context, pair DescriptionPair) float64 {
	var funder, fundee []float32

	var g errgroup.Group
	g.Go(func() error {
		funder = e.embed(ctx, "funder_embedding", pair.Funder)
		return nil
	})
	g.Go(func() error {
		fundee = e.embed(ctx, "fundee_embedding", pair.Fundee)
		return nil
	})
	_ = g.Wait()

	sim := CosineSimilarity(funder, fundee)
	e.record(Event{Scorer: ScorerAlignment, Factor: "cosine_similarity", Value: sim})

	return e.finish(ScorerAlignment, (sim+1)/2*100)
}

func (e *Engine) embed(ctx context.Context, factor, text string) []float32 {
	if e.provider == nil {
		return e.fallbackVector(factor, text, nil)
	}
	if strings.TrimSpace(text) == "" {
		return e.fallbackVector(factor, text, embedding.ErrEmptyText)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	vec, err := e.provider.Embed(callCtx, text)
	if err == nil && len(vec) != e.fallback.Dimension() {
		err = &embedding.ProviderError{
			Provider: embedding.NameOf(e.provider),
			Op:       "embed",
			Err:      fmt.Errorf("got %d dimensions, want %d", len(vec), e.fallback.Dimension()),
		}
	}
	if err != nil {
		return e.fallbackVector(factor, text, err)
	}

	return vec
}

func (e *Engine) fallbackVector(factor, text string, cause error) []float32 {
	e.record(Event{
		Scorer:   ScorerAlignment,
		Factor:   factor,
		Input:    embedding.NameOf(e.fallback),
		Fallback: true,
		Err:      cause,
	})

	return e.fallback.Vector(text)
}

// CosineSimilarity returns dot(a, b) / (|a| |b|) in [-1, 1]. Vectors of
// different length or zero magnitude have similarity 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) {
		return 0
	}
	return math.Max(-1, math.Min(1, sim))
}
