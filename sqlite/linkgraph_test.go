package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fwojciec/siteqa"
	"github.com/fwojciec/siteqa/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkGraph_RecordStatus(t *testing.T) {
	t.Parallel()

	t.Run("inserts and updates a record", func(t *testing.T) {
		t.Parallel()

		g := sqlite.NewLinkGraph(setupTestDB(t))

		require.True(t, g.RecordStatus(siteqa.URLRecord{URL: "https://example.com/", Status: siteqa.StatusPending}))
		assert.False(t, g.HasVisited("https://example.com/"))

		require.True(t, g.RecordStatus(siteqa.URLRecord{
			URL:         "https://example.com/",
			Status:      siteqa.StatusFetched,
			ContentHash: "abc",
		}))
		assert.True(t, g.HasVisited("https://example.com/"))

		rec, ok := g.Record("https://example.com/")
		require.True(t, ok)
		assert.Equal(t, "abc", rec.ContentHash)
	})

	t.Run("unchanged fetch is a no-op", func(t *testing.T) {
		t.Parallel()

		g := sqlite.NewLinkGraph(setupTestDB(t))
		first := siteqa.URLRecord{
			URL:         "https://example.com/",
			Status:      siteqa.StatusFetched,
			ContentHash: "abc",
			FetchedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		}
		require.True(t, g.RecordStatus(first))

		again := first
		again.FetchedAt = first.FetchedAt.Add(time.Hour)
		assert.False(t, g.RecordStatus(again))

		changed := first
		changed.ContentHash = "def"
		assert.True(t, g.RecordStatus(changed))
	})

	t.Run("failed and skipped count as visited", func(t *testing.T) {
		t.Parallel()

		g := sqlite.NewLinkGraph(setupTestDB(t))
		g.RecordStatus(siteqa.URLRecord{URL: "https://example.com/a", Status: siteqa.StatusFailed})
		g.RecordStatus(siteqa.URLRecord{URL: "https://example.com/b.png", Status: siteqa.StatusSkipped})

		assert.True(t, g.HasVisited("https://example.com/a"))
		assert.True(t, g.HasVisited("https://example.com/b.png"))
		assert.False(t, g.HasVisited("https://example.com/unknown"))
	})
}

func TestLinkGraph_RecordEdge(t *testing.T) {
	t.Parallel()

	g := sqlite.NewLinkGraph(setupTestDB(t))

	require.True(t, g.RecordEdge(siteqa.LinkEdge{Parent: "https://example.com/", Child: "https://example.com/a", Anchor: "first"}))
	assert.False(t, g.RecordEdge(siteqa.LinkEdge{Parent: "https://example.com/", Child: "https://example.com/a", Anchor: "second"}))
	require.True(t, g.RecordEdge(siteqa.LinkEdge{Parent: "https://example.com/a", Child: "https://example.com/"}))

	edges := g.Edges()
	require.Len(t, edges, 2)
	assert.Equal(t, "first", edges[0].Anchor)
	assert.Equal(t, "https://example.com/a", edges[1].Parent)
}

func TestLinkGraph_Pending(t *testing.T) {
	t.Parallel()

	g := sqlite.NewLinkGraph(setupTestDB(t))
	g.RecordStatus(siteqa.URLRecord{URL: "https://example.com/z", Status: siteqa.StatusPending, Depth: 1})
	g.RecordStatus(siteqa.URLRecord{URL: "https://example.com/b", Status: siteqa.StatusPending, Depth: 2})
	g.RecordStatus(siteqa.URLRecord{URL: "https://example.com/a", Status: siteqa.StatusPending, Depth: 1})
	g.RecordStatus(siteqa.URLRecord{URL: "https://example.com/", Status: siteqa.StatusFetched})

	pending := g.Pending()
	require.Len(t, pending, 3)
	assert.Equal(t, "https://example.com/a", pending[0].URL)
	assert.Equal(t, "https://example.com/z", pending[1].URL)
	assert.Equal(t, "https://example.com/b", pending[2].URL)

	assert.Len(t, g.Records(), 4)
}

func TestLinkGraph_FlushAndLoad(t *testing.T) {
	t.Parallel()

	t.Run("persists state across instances", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "linkgraph.db")
		fetchedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		db := sqlite.NewDB(path)
		require.NoError(t, db.Open())
		g := sqlite.NewLinkGraph(db)
		g.RecordStatus(siteqa.URLRecord{
			URL:         "https://example.com/",
			Status:      siteqa.StatusFetched,
			Kind:        siteqa.KindPage,
			FetchedAt:   fetchedAt,
			Size:        512,
			ContentHash: "abc",
			Method:      siteqa.MethodHTTPFallback,
		})
		g.RecordStatus(siteqa.URLRecord{URL: "https://example.com/a", Status: siteqa.StatusPending, Depth: 1, Kind: siteqa.KindPage})
		g.RecordEdge(siteqa.LinkEdge{
			Parent:       "https://example.com/",
			Child:        "https://example.com/a",
			Anchor:       "Getting started",
			Depth:        1,
			DiscoveredAt: fetchedAt,
		})
		require.NoError(t, g.Flush(ctx))
		require.NoError(t, g.Close())

		db = sqlite.NewDB(path)
		require.NoError(t, db.Open())
		loaded := sqlite.NewLinkGraph(db)
		defer loaded.Close()
		require.NoError(t, loaded.Load(ctx))

		rec, ok := loaded.Record("https://example.com/")
		require.True(t, ok)
		assert.Equal(t, siteqa.StatusFetched, rec.Status)
		assert.Equal(t, siteqa.MethodHTTPFallback, rec.Method)
		assert.Equal(t, int64(512), rec.Size)
		assert.True(t, fetchedAt.Equal(rec.FetchedAt))

		pending := loaded.Pending()
		require.Len(t, pending, 1)
		assert.Equal(t, 1, pending[0].Depth)

		edges := loaded.Edges()
		require.Len(t, edges, 1)
		assert.Equal(t, "Getting started", edges[0].Anchor)

		assert.False(t, loaded.RecordEdge(siteqa.LinkEdge{Parent: "https://example.com/", Child: "https://example.com/a"}))
	})

	t.Run("flush writes only new mutations", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		db := setupTestDB(t)
		g := sqlite.NewLinkGraph(db)

		g.RecordStatus(siteqa.URLRecord{URL: "https://example.com/", Status: siteqa.StatusPending})
		require.NoError(t, g.Flush(ctx))

		g.RecordStatus(siteqa.URLRecord{URL: "https://example.com/", Status: siteqa.StatusFetched, ContentHash: "x"})
		g.RecordEdge(siteqa.LinkEdge{Parent: "https://example.com/", Child: "https://example.com/a"})
		require.NoError(t, g.Flush(ctx))
		require.NoError(t, g.Flush(ctx))

		var status string
		require.NoError(t, db.QueryRowContext(ctx, "SELECT status FROM urls WHERE url = ?", "https://example.com/").Scan(&status))
		assert.Equal(t, "fetched", status)

		var edges int
		require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM edges").Scan(&edges))
		assert.Equal(t, 1, edges)
	})

	t.Run("keeps dirty state when flush fails", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "linkgraph.db")
		db := sqlite.NewDB(path)
		require.NoError(t, db.Open())
		g := sqlite.NewLinkGraph(db)

		g.RecordStatus(siteqa.URLRecord{URL: "https://example.com/", Status: siteqa.StatusPending})
		require.NoError(t, db.Close())

		err := g.Flush(ctx)
		require.Error(t, err)
		assert.Equal(t, siteqa.ESTORE, siteqa.ErrorCode(err))

		db = sqlite.NewDB(path)
		require.NoError(t, db.Open())
		defer db.Close()
		var n int
		require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM urls").Scan(&n))
		assert.Equal(t, 0, n)

		rec, ok := g.Record("https://example.com/")
		require.True(t, ok)
		assert.Equal(t, siteqa.StatusPending, rec.Status)
	})
}
