package index_test

import (
	"context"
	"testing"

	"github.com/fwojciec/siteqa/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEmbedder(t *testing.T) {
	t.Parallel()

	t.Run("names the model after its dimension", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "hash-64", index.NewHashEmbedder(64).Model())
		assert.Equal(t, "hash-512", (&index.HashEmbedder{}).Model())
	})

	t.Run("related texts outrank unrelated ones", func(t *testing.T) {
		t.Parallel()

		e := index.NewHashEmbedder(256)
		vectors, err := e.Embed(context.Background(), []string{
			"Tuition and fees for undergraduate students",
			"Undergraduate tuition fees",
			"Campus parking permits",
		})
		require.NoError(t, err)
		require.Len(t, vectors, 3)

		f, err := index.Build(entriesFor(vectors))
		require.NoError(t, err)

		hits := f.Search(vectors[1], 3)
		require.Len(t, hits, 3)
		assert.Equal(t, 1, hits[0].Entry.ID)
		assert.Equal(t, 0, hits[1].Entry.ID)
		assert.Greater(t, hits[1].Score, hits[2].Score)
	})

	t.Run("is deterministic and normalized", func(t *testing.T) {
		t.Parallel()

		e := index.NewHashEmbedder(32)
		a, err := e.Embed(context.Background(), []string{"Financial aid deadlines"})
		require.NoError(t, err)
		b, err := e.Embed(context.Background(), []string{"Financial aid deadlines"})
		require.NoError(t, err)
		assert.Equal(t, a, b)

		var sum float64
		for _, x := range a[0] {
			sum += float64(x) * float64(x)
		}
		assert.InDelta(t, 1.0, sum, 1e-5)
	})

	t.Run("text without terms is the zero vector", func(t *testing.T) {
		t.Parallel()

		vectors, err := index.NewHashEmbedder(8).Embed(context.Background(), []string{"the and of"})
		require.NoError(t, err)
		assert.Equal(t, make([]float32, 8), vectors[0])
	})

	t.Run("honours cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := index.NewHashEmbedder(8).Embed(ctx, []string{"x"})
		require.ErrorIs(t, err, context.Canceled)
	})
}
