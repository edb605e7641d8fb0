package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

const hashProviderName = "hash"

// HashEmbedder derives a pseudo-embedding from the SHA-256 of the text.
// The same text always yields the same unit-length vector, independent of
// process, platform or Go version. It carries no semantic meaning.
type HashEmbedder struct {
	dimension int
}

// NewHashEmbedder returns a HashEmbedder producing vectors of the given size.
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &HashEmbedder{dimension: dimension}
}

func (h *HashEmbedder) Name() string { return hashProviderName }

func (h *HashEmbedder) Dimension() int { return h.dimension }

// Embed never fails.
func (h *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return h.Vector(text), nil
}

// Vector expands sha256(text || counter) blocks into components in [-1, 1)
// and scales the result to unit length.
func (h *HashEmbedder) Vector(text string) []float32 {
	raw := make([]float64, h.dimension)

	buf := make([]byte, len(text)+5)
	copy(buf, text)
	buf[len(text)] = 0

	var block [sha256.Size]byte
	for i := 0; i < h.dimension; i++ {
		word := i % 4
		if word == 0 {
			binary.BigEndian.PutUint32(buf[len(text)+1:], uint32(i/4))
			block = sha256.Sum256(buf)
		}
		u := binary.BigEndian.Uint64(block[word*8 : word*8+8])
		raw[i] = float64(u>>11)/float64(1<<53)*2 - 1
	}

	var norm float64
	for _, v := range raw {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, h.dimension)
	if norm == 0 {
		out[0] = 1
		return out
	}
	for i, v := range raw {
		out[i] = float32(v / norm)
	}
	return out
}
