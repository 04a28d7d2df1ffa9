package index_test

import (
	"testing"

	"github.com/fwojciec/siteqa"
	"github.com/fwojciec/siteqa/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id int, v ...float32) siteqa.IndexEntry {
	return siteqa.IndexEntry{ID: id, Vector: v, Unit: siteqa.TextUnit{URL: "https://example.edu/", Position: id}}
}

func TestBuild(t *testing.T) {
	t.Parallel()

	t.Run("rejects mixed dimensions", func(t *testing.T) {
		t.Parallel()

		_, err := index.Build([]siteqa.IndexEntry{entry(0, 1, 0), entry(1, 1, 0, 0)})
		require.Error(t, err)
		assert.Equal(t, siteqa.EINDEX, siteqa.ErrorCode(err))
	})

	t.Run("rejects empty vectors", func(t *testing.T) {
		t.Parallel()

		_, err := index.Build([]siteqa.IndexEntry{entry(0)})
		require.Error(t, err)
		assert.Equal(t, siteqa.EINDEX, siteqa.ErrorCode(err))
	})

	t.Run("empty index has no dimension", func(t *testing.T) {
		t.Parallel()

		f, err := index.Build(nil)
		require.NoError(t, err)
		assert.Equal(t, 0, f.Len())
		assert.Equal(t, 0, f.Dimension())
		assert.Empty(t, f.Search([]float32{1}, 3))
	})
}

func TestFlat_Search(t *testing.T) {
	t.Parallel()

	f, err := index.Build([]siteqa.IndexEntry{
		entry(0, 0, 1),
		entry(1, 1, 0),
		entry(2, 1, 1),
		entry(3, 2, 0),
		entry(4, -1, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, 5, f.Len())
	assert.Equal(t, 2, f.Dimension())

	t.Run("returns best first with ties by id", func(t *testing.T) {
		t.Parallel()

		hits := f.Search([]float32{1, 0}, 3)
		require.Len(t, hits, 3)
		assert.Equal(t, 1, hits[0].Entry.ID)
		assert.Equal(t, 3, hits[1].Entry.ID)
		assert.Equal(t, 2, hits[2].Entry.ID)
		assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
		assert.InDelta(t, 0.7071, hits[2].Score, 1e-3)
	})

	t.Run("k larger than index returns everything", func(t *testing.T) {
		t.Parallel()

		hits := f.Search([]float32{1, 0}, 10)
		require.Len(t, hits, 5)
		assert.Equal(t, 4, hits[4].Entry.ID)
		assert.InDelta(t, -1.0, hits[4].Score, 1e-9)
	})

	t.Run("wrong dimension matches nothing", func(t *testing.T) {
		t.Parallel()

		assert.Empty(t, f.Search([]float32{1, 0, 0}, 3))
	})

	t.Run("zero query matches nothing", func(t *testing.T) {
		t.Parallel()

		assert.Empty(t, f.Search([]float32{0, 0}, 3))
	})

	t.Run("non-positive k matches nothing", func(t *testing.T) {
		t.Parallel()

		assert.Empty(t, f.Search([]float32{1, 0}, 0))
	})
}
