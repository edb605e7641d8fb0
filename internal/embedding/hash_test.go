package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEmbedderDeterministic(t *testing.T) {
	h := NewHashEmbedder(0)
	require.Equal(t, DefaultDimension, h.Dimension())

	a, err := h.Embed(context.Background(), "direct air capture in Iceland")
	require.NoError(t, err)
	b, err := NewHashEmbedder(DefaultDimension).Embed(context.Background(), "direct air capture in Iceland")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestHashEmbedderUnitLength(t *testing.T) {
	tests := []struct {
		name string
		text string
		dim  int
	}{
		{name: "empty text", text: "", dim: 768},
		{name: "short", text: "ocean", dim: 16},
		{name: "odd dimension", text: "enhanced weathering", dim: 7},
		{name: "unicode", text: "Kohlenstoffentnahme — 炭素除去", dim: 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vec := NewHashEmbedder(tt.dim).Vector(tt.text)
			require.Len(t, vec, tt.dim)

			var norm float64
			for _, v := range vec {
				norm += float64(v) * float64(v)
			}
			assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
		})
	}
}

func TestHashEmbedderDistinctTexts(t *testing.T) {
	h := NewHashEmbedder(DefaultDimension)
	a := h.Vector("we fund direct air capture")
	b := h.Vector("we fund ocean alkalinity enhancement")

	assert.NotEqual(t, a, b)
}

func TestNameOf(t *testing.T) {
	assert.Equal(t, "hash", NameOf(NewHashEmbedder(8)))
	assert.Equal(t, "", NameOf(nil))
	assert.Equal(t, "*embedding.stubProvider", NameOf(&stubProvider{}))
}
