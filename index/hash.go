package index

import (
	"context"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/siteqa"
	"github.com/fwojciec/siteqa/snowball"
)

// Compile-time interface verification.
var _ siteqa.Embedder = (*HashEmbedder)(nil)

// DefaultHashDimension is the vector size of a zero-value HashEmbedder.
const DefaultHashDimension = 512

// HashEmbedder is a local embedder that maps stemmed terms into a fixed
// number of buckets (the hashing trick). It needs no network access and
// is deterministic, so it serves offline runs and tests. Texts sharing
// vocabulary score high; paraphrases do not.
type HashEmbedder struct {
	Dimension int
}

// NewHashEmbedder returns a HashEmbedder producing dim-sized vectors.
func NewHashEmbedder(dim int) *HashEmbedder {
	return &HashEmbedder{Dimension: dim}
}

// Model names the embedder, including its dimension, since vectors of
// different sizes are not comparable.
func (e *HashEmbedder) Model() string {
	return fmt.Sprintf("hash-%d", e.dim())
}

// Embed returns one L2-normalized vector per text. A text without any
// terms yields the zero vector.
func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dim := e.dim()
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, dim)
		for _, term := range snowball.Terms(text) {
			h := xxhash.Sum64String(term)
			bucket := h % uint64(dim)
			// The top bit picks the sign so colliding terms tend to cancel.
			if h>>63 == 1 {
				v[bucket]--
			} else {
				v[bucket]++
			}
		}
		normalize(v)
		out[i] = v
	}
	return out, nil
}

func (e *HashEmbedder) dim() int {
	if e.Dimension <= 0 {
		return DefaultHashDimension
	}
	return e.Dimension
}

func normalize(v []float32) {
	n := norm(v)
	if n == 0 {
		return
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / n)
	}
}

