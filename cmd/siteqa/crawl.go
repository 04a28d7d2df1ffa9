package main

import (
	"fmt"
	"os"

	"github.com/fwojciec/siteqa"
	"github.com/fwojciec/siteqa/crawl"
	"github.com/fwojciec/siteqa/fs"
	"github.com/fwojciec/siteqa/sqlite"
)

// apply copies the flags that were set onto cfg.
func (c *CrawlCmd) apply(cfg *siteqa.Config) {
	if c.Depth >= 0 {
		cfg.Crawl.MaxDepth = c.Depth
	}
	if c.MaxPages > 0 {
		cfg.Crawl.MaxPages = c.MaxPages
	}
	if c.Concurrency > 0 {
		cfg.Crawl.Concurrency = c.Concurrency
	}
	if c.Allow != "" {
		cfg.Crawl.Allow = siteqa.AllowPolicy(c.Allow)
	}
	if c.Recrawl {
		cfg.Crawl.Recrawl = true
	}
	if len(c.Include) > 0 {
		cfg.Crawl.Include = c.Include
	}
	if len(c.Exclude) > 0 {
		cfg.Crawl.Exclude = c.Exclude
	}
	if c.MaxFileSize > 0 {
		cfg.Fetch.MaxFileSize = c.MaxFileSize
	}
	if c.NoRender {
		cfg.Fetch.DisableRender = true
	}
}

// Run executes the crawl command.
func (c *CrawlCmd) Run(deps *Dependencies) error {
	cfg := deps.Config
	c.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", siteqa.ErrorMessage(err))
		return err
	}

	startURL, err := siteqa.NormalizeURL(c.URL)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", siteqa.ErrorMessage(err))
		return err
	}
	filter, err := siteqa.NewURLFilter(cfg.Crawl.Include, cfg.Crawl.Exclude)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", siteqa.ErrorMessage(err))
		return err
	}

	store, err := deps.Results.DomainFor(startURL)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", siteqa.ErrorMessage(err))
		return err
	}
	graph, err := openGraph(store)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", siteqa.ErrorMessage(err))
		return err
	}
	defer graph.Close()

	crawler := &crawl.Crawler{
		Fetcher:      deps.Fetcher,
		Parser:       deps.Parser,
		Links:        deps.Links,
		Sitemaps:     deps.Sitemaps,
		Graph:        graph,
		Corpus:       store,
		TokenCounter: deps.TokenCounter,
		Filter:       filter,
		Config:       cfg.Crawl,
		Logger:       deps.Logger,
		Now:          deps.Now,
	}

	progress := func(event crawl.ProgressEvent) {
		switch event.Type {
		case crawl.ProgressStarted:
			fmt.Fprintf(deps.Stdout, "  Queued %d URLs\n", event.Total)
		case crawl.ProgressFailed:
			fmt.Fprintf(deps.Stderr, "  failed %s: %s\n", shortURL(event.URL, 80), siteqa.ErrorMessage(event.Error))
		}
	}

	startedAt := deps.now()
	result, err := crawler.Crawl(deps.Ctx, crawl.Start{
		URL:        startURL,
		SitemapURL: c.Sitemap,
		Discover:   c.Discover,
	}, progress)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error crawling: %s\n", siteqa.ErrorMessage(err))
		return err
	}

	summary := &siteqa.CrawlSummary{
		RunID:      deps.runID(),
		StartURL:   startURL,
		StartedAt:  startedAt,
		FinishedAt: deps.now(),
		Fetched:    result.Fetched,
		Failed:     result.Failed,
		Skipped:    result.Skipped,
		Pending:    result.Pending,
		Bytes:      result.Bytes,
		Tokens:     result.Tokens,
		Truncated:  result.Truncated,
	}
	if err := store.SaveSummary(summary); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", siteqa.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "  Fetched %d URLs (%d unchanged, %d without text), %d failed, %d skipped (%s, %s)\n",
		result.Fetched, result.Unchanged, result.Placeholders, result.Failed, result.Skipped,
		formatBytes(result.Bytes), formatTokens(result.Tokens))
	if result.StoreErrors > 0 {
		fmt.Fprintf(deps.Stderr, "  %d link graph writes failed; they are retried on the next run\n", result.StoreErrors)
	}
	if result.Truncated {
		fmt.Fprintf(deps.Stdout, "  Stopped at %d URLs; %d remain pending for the next run\n", cfg.Crawl.MaxPages, result.Pending)
	}
	if result.Canceled {
		fmt.Fprintf(deps.Stderr, "  Interrupted; %d URLs remain pending. Run the same command again to resume.\n", result.Pending)
		return deps.Ctx.Err()
	}
	return nil
}

// openGraph opens the link graph of a domain, creating the
// domain directory on first use.
func openGraph(store *fs.DomainStore) (*sqlite.LinkGraph, error) {
	if err := os.MkdirAll(store.Dir(), 0o755); err != nil {
		return nil, siteqa.WrapError(siteqa.ESTORE, err, "creating %s: %v", store.Dir(), err)
	}
	db := sqlite.NewDB(store.LinkGraphPath())
	if err := db.Open(); err != nil {
		return nil, siteqa.WrapError(siteqa.ESTORE, err, "opening link graph %s: %v", store.LinkGraphPath(), err)
	}
	return sqlite.NewLinkGraph(db), nil
}
