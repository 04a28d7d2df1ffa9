package main_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/siteqa"
	main "github.com/fwojciec/siteqa/cmd/siteqa"
	"github.com/fwojciec/siteqa/crawl"
	"github.com/fwojciec/siteqa/fs"
	"github.com/fwojciec/siteqa/goquery"
	sitehttp "github.com/fwojciec/siteqa/http"
	"github.com/fwojciec/siteqa/index"
	"github.com/fwojciec/siteqa/mock"
	"github.com/fwojciec/siteqa/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain_Run(t *testing.T) {
	t.Parallel()

	t.Run("no command prints help and fails", func(t *testing.T) {
		t.Parallel()

		stdout := &bytes.Buffer{}
		err := main.NewMain().Run(context.Background(), nil, stdout, &bytes.Buffer{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "no command specified")
		assert.Contains(t, stdout.String(), "crawl")
	})

	t.Run("help lists commands", func(t *testing.T) {
		t.Parallel()

		stdout := &bytes.Buffer{}
		err := main.NewMain().Run(context.Background(), []string{"--help"}, stdout, &bytes.Buffer{})

		require.NoError(t, err)
		for _, cmd := range []string{"crawl", "clean", "index", "ask", "status"} {
			assert.Contains(t, stdout.String(), cmd)
		}
	})

	t.Run("rejects a missing config file", func(t *testing.T) {
		t.Parallel()

		m := main.NewMain()
		err := m.Run(context.Background(), []string{
			"--config", filepath.Join(t.TempDir(), "missing.toml"),
			"status", "example.edu",
		}, &bytes.Buffer{}, &bytes.Buffer{})

		require.Error(t, err)
		assert.Equal(t, siteqa.EINVALID, siteqa.ErrorCode(err))
	})

	t.Run("ask requires an api key", func(t *testing.T) {
		t.Parallel()

		m := main.NewMain()
		m.Getenv = func(string) string { return "" }
		stderr := &bytes.Buffer{}
		err := m.Run(context.Background(), []string{
			"--results", t.TempDir(),
			"ask", "What are the fees?",
		}, &bytes.Buffer{}, stderr)

		require.Error(t, err)
		assert.Equal(t, siteqa.EINVALID, siteqa.ErrorCode(err))
		assert.Contains(t, stderr.String(), "GEMINI_API_KEY")
	})

	t.Run("status of an unknown domain", func(t *testing.T) {
		t.Parallel()

		stderr := &bytes.Buffer{}
		err := main.NewMain().Run(context.Background(), []string{
			"--results", t.TempDir(),
			"status", "example.edu",
		}, &bytes.Buffer{}, stderr)

		require.Error(t, err)
		assert.Equal(t, siteqa.ENOTFOUND, siteqa.ErrorCode(err))
		assert.Contains(t, stderr.String(), "has not been crawled")
	})
}

// newCollegeSite serves a three-page site with plain HTML.
func newCollegeSite(t *testing.T) *httptest.Server {
	t.Helper()

	pages := map[string]string{
		"/": `<html><head><title>Example College</title></head><body><main>
			<h1>Example College</h1>
			<p>Learn about <a href="/tuition">Tuition and fees</a> or <a href="/housing">Housing</a>.</p>
		</main></body></html>`,
		"/tuition": `<html><head><title>Tuition</title></head><body><main>
			<h1>Tuition</h1>
			<p>Undergraduate tuition is $10,000 per year.</p>
		</main></body></html>`,
		"/housing": `<html><head><title>Housing</title></head><body><main>
			<h1>Housing</h1>
			<p>First-year students live in residence halls.</p>
		</main></body></html>`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newDeps(t *testing.T, results string) (*main.Dependencies, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	cfg := siteqa.DefaultConfig()
	cfg.ResultsDir = results
	cfg.Fetch.DisableRender = true
	cfg.Retrieval.MinScore = 0.1

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	return &main.Dependencies{
		Ctx:     context.Background(),
		Stdout:  stdout,
		Stderr:  stderr,
		Config:  cfg,
		Results: fs.NewResults(results),
		Fetcher: &crawl.Fetcher{
			Getter: sitehttp.NewFetcher(),
			Config: cfg.Fetch,
		},
		Parser:   crawl.Parsers{siteqa.FormatHTML: goquery.NewParser()},
		Links:    goquery.NewLinkExtractor(),
		Embedder: index.NewHashEmbedder(256),
		Now:      func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) },
		NewRunID: func() string { return "run-1" },
	}, stdout, stderr
}

func TestPipeline(t *testing.T) {
	t.Parallel()

	srv := newCollegeSite(t)
	results := t.TempDir()
	indexPath := filepath.Join(t.TempDir(), "index.db")
	domain, err := siteqa.Domain(srv.URL)
	require.NoError(t, err)

	t.Run("crawl", func(t *testing.T) {
		deps, stdout, _ := newDeps(t, results)

		err := (&main.CrawlCmd{URL: srv.URL + "/", Depth: -1}).Run(deps)

		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "Fetched 3 URLs")

		store, err := fs.NewResults(results).Domain(domain)
		require.NoError(t, err)
		summary, err := store.Summary()
		require.NoError(t, err)
		assert.Equal(t, "run-1", summary.RunID)
		assert.Equal(t, 3, summary.Fetched)
	})

	t.Run("status", func(t *testing.T) {
		deps, stdout, _ := newDeps(t, results)

		err := (&main.StatusCmd{Domain: srv.URL}).Run(deps)

		require.NoError(t, err)
		output := stdout.String()
		assert.Contains(t, output, domain)
		assert.Contains(t, output, "3 fetched, 0 failed")
		assert.Contains(t, output, "3 http fallback")
		assert.Contains(t, output, "Links:   2")
		assert.Contains(t, output, "run-1")
	})

	t.Run("clean", func(t *testing.T) {
		deps, stdout, _ := newDeps(t, results)

		err := (&main.CleanCmd{}).Run(deps)

		require.NoError(t, err)
		assert.Contains(t, stdout.String(), domain+": 3 records")
	})

	t.Run("index", func(t *testing.T) {
		deps, stdout, _ := newDeps(t, results)
		deps.IndexStore = sqlite.NewIndexStore(indexPath)

		err := (&main.IndexCmd{}).Run(deps)

		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "with hash-256 (dimension 256)")
	})

	t.Run("ask from the index", func(t *testing.T) {
		deps, stdout, _ := newDeps(t, results)
		deps.IndexStore = sqlite.NewIndexStore(indexPath)
		var prompt string
		deps.Generator = &mock.Generator{
			GenerateFn: func(_ context.Context, contextText, query string) (string, error) {
				prompt = contextText
				return "Tuition is $10,000 per year.", nil
			},
		}

		err := (&main.AskCmd{Question: "How much is undergraduate tuition?"}).Run(deps)

		require.NoError(t, err)
		assert.Contains(t, prompt, "$10,000")
		output := stdout.String()
		assert.True(t, strings.HasPrefix(output, "Tuition is $10,000 per year.\n"))
		assert.Contains(t, output, "Sources:")
		assert.Contains(t, output, srv.URL+"/tuition, match score")
	})

	t.Run("ask without an index uses link search", func(t *testing.T) {
		deps, stdout, stderr := newDeps(t, results)
		deps.IndexStore = sqlite.NewIndexStore(filepath.Join(t.TempDir(), "none.db"))
		deps.Generator = &mock.Generator{
			GenerateFn: func(_ context.Context, contextText, _ string) (string, error) {
				return "They live in residence halls.", nil
			},
		}

		err := (&main.AskCmd{Question: "housing"}).Run(deps)

		require.NoError(t, err)
		assert.Contains(t, stderr.String(), "no index yet")
		assert.Contains(t, stdout.String(), srv.URL+"/housing, found via link search")
	})

	t.Run("ask with nothing relevant", func(t *testing.T) {
		deps, stdout, _ := newDeps(t, results)
		deps.IndexStore = sqlite.NewIndexStore(filepath.Join(t.TempDir(), "none.db"))
		deps.Generator = &mock.Generator{}

		err := (&main.AskCmd{Question: "parking permits"}).Run(deps)

		require.Error(t, err)
		assert.Equal(t, siteqa.ENORESULTS, siteqa.ErrorCode(err))
		assert.Contains(t, stdout.String(), "No relevant content")
	})
}

func TestCrawlCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("rejects an invalid filter", func(t *testing.T) {
		t.Parallel()

		deps, _, stderr := newDeps(t, t.TempDir())

		err := (&main.CrawlCmd{URL: "https://example.edu/", Depth: -1, Include: []string{"("}}).Run(deps)

		require.Error(t, err)
		assert.Equal(t, siteqa.EINVALID, siteqa.ErrorCode(err))
		assert.Contains(t, stderr.String(), "invalid include pattern")
	})

	t.Run("rejects an unknown allow policy", func(t *testing.T) {
		t.Parallel()

		deps, _, _ := newDeps(t, t.TempDir())

		err := (&main.CrawlCmd{URL: "https://example.edu/", Depth: -1, Allow: "everywhere"}).Run(deps)

		require.Error(t, err)
		assert.Equal(t, siteqa.EINVALID, siteqa.ErrorCode(err))
	})

	t.Run("depth zero fetches only the start page", func(t *testing.T) {
		t.Parallel()

		srv := newCollegeSite(t)
		deps, stdout, _ := newDeps(t, t.TempDir())

		err := (&main.CrawlCmd{URL: srv.URL + "/", Depth: 0}).Run(deps)

		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "Fetched 1 URLs")
	})
}

func TestCleanCmd_Run(t *testing.T) {
	t.Parallel()

	deps, _, stderr := newDeps(t, t.TempDir())

	err := (&main.CleanCmd{}).Run(deps)

	require.Error(t, err)
	assert.Equal(t, siteqa.ENOTFOUND, siteqa.ErrorCode(err))
	assert.Contains(t, stderr.String(), "nothing crawled yet")
}

func TestIndexCmd_Run(t *testing.T) {
	t.Parallel()

	deps, _, stderr := newDeps(t, t.TempDir())
	deps.IndexStore = sqlite.NewIndexStore(filepath.Join(t.TempDir(), "index.db"))

	err := (&main.IndexCmd{}).Run(deps)

	require.Error(t, err)
	assert.Equal(t, siteqa.EINDEX, siteqa.ErrorCode(err))
	assert.Contains(t, stderr.String(), "previous index")
}
