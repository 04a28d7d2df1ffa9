// Package crawl provides breadth-first site crawling. It seeds a frontier
// from sitemaps or a start URL, fetches and parses every admitted URL,
// and persists the corpus and link graph after each URL so an interrupted
// run can resume where it stopped.
package crawl

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/fwojciec/siteqa"
)

// Crawler orchestrates one crawl run over a single domain.
//
// Workers only fetch and parse. The coordinator is the single writer of
// the corpus and the link graph, and it flushes the graph after every URL.
type Crawler struct {
	Fetcher      siteqa.Fetcher
	Parser       siteqa.Parser
	Links        siteqa.LinkExtractor
	Sitemaps     siteqa.SitemapService
	Graph        siteqa.LinkGraph
	Corpus       siteqa.CorpusStore
	TokenCounter siteqa.TokenCounter
	Filter       *siteqa.URLFilter
	Config       siteqa.CrawlConfig
	Logger       *slog.Logger

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Start describes where a crawl begins.
type Start struct {
	URL string

	// SitemapURL, when set, seeds the crawl from that sitemap.
	SitemapURL string

	// Discover looks for sitemaps through robots.txt and /sitemap.xml.
	Discover bool
}

// Result holds the outcome of a crawl run.
type Result struct {
	Fetched      int
	Unchanged    int
	Placeholders int
	Failed       int
	Skipped      int
	Interrupted  int
	StoreErrors  int
	Pending      int
	Bytes        int64
	Tokens       int
	Truncated    bool
	Canceled     bool
}

// ProgressEvent reports progress during a crawl operation.
type ProgressEvent struct {
	Type      ProgressType
	Completed int
	Total     int
	URL       string
	Error     error
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressStarted ProgressType = iota
	ProgressCompleted
	ProgressFailed
	ProgressSkipped
	ProgressFinished
)

// ProgressFunc is a callback for reporting crawl progress.
type ProgressFunc func(event ProgressEvent)

// outcome is what a worker learned about one URL.
type outcome struct {
	item     Item
	fetched  *siteqa.FetchResult
	format   siteqa.Format
	parsed   *siteqa.StructuredRecord
	links    []siteqa.Link
	fetchErr error
	parseErr error
}

// run holds the coordinator state of one Crawl call.
type run struct {
	ctx       context.Context
	persist   context.Context
	cfg       siteqa.CrawlConfig
	frontier  *Frontier
	scope     *scope
	result    Result
	completed int
	progress  ProgressFunc
}

// Crawl runs a crawl from start until the frontier is empty, MaxPages
// URLs were dispatched, or ctx is canceled. URLs in flight at
// cancellation stay pending and are picked up by the next run.
func (c *Crawler) Crawl(ctx context.Context, start Start, progress ProgressFunc) (*Result, error) {
	startURL, err := siteqa.NormalizeURL(start.URL)
	if err != nil {
		return nil, err
	}
	cfg := c.config()
	sc, err := newScope(startURL, cfg.Allow)
	if err != nil {
		return nil, err
	}

	if err := c.Graph.Load(ctx); err != nil {
		return nil, err
	}

	r := &run{
		ctx:      ctx,
		persist:  context.WithoutCancel(ctx),
		cfg:      cfg,
		frontier: NewFrontier(frontierExpectedURLs, frontierFalsePositiveRate),
		scope:    sc,
		progress: progress,
	}

	for _, seed := range c.seeds(ctx, sc, startURL, start) {
		c.admit(r, seed, 0)
	}
	for _, rec := range c.Graph.Pending() {
		c.admit(r, rec.URL, rec.Depth)
	}
	if err := c.Graph.Flush(ctx); err != nil {
		return nil, err
	}

	if progress != nil {
		progress(ProgressEvent{
			Type:  ProgressStarted,
			Total: r.frontier.Len(),
		})
	}

	r.result.Truncated = c.walk(r)
	r.result.Canceled = ctx.Err() != nil

	c.flush(r, startURL)
	r.result.Pending = len(c.Graph.Pending())

	if progress != nil {
		progress(ProgressEvent{
			Type:      ProgressFinished,
			Completed: r.completed,
		})
	}
	return &r.result, nil
}

// seeds returns the in-scope sitemap entries, or the start URL when the
// sitemap yields none. A sitemap listing www.example.edu for a crawl of
// example.edu must not leave the crawl with nothing to fetch.
func (c *Crawler) seeds(ctx context.Context, sc *scope, startURL string, start Start) []string {
	var urls []string
	if start.SitemapURL != "" && c.Sitemaps != nil {
		found, err := c.Sitemaps.ParseSitemap(ctx, start.SitemapURL)
		if err != nil {
			c.logger().Warn("sitemap unavailable, seeding from start URL", "sitemap", start.SitemapURL, "err", err)
		}
		urls = append(urls, found...)
	}
	if start.Discover && c.Sitemaps != nil {
		found, err := c.Sitemaps.DiscoverURLs(ctx, startURL)
		if err != nil {
			c.logger().Warn("sitemap discovery failed", "url", startURL, "err", err)
		}
		urls = append(urls, found...)
	}

	var seeds []string
	for _, u := range urls {
		normalized, err := siteqa.NormalizeURL(u)
		if err != nil || !sc.allows(normalized) {
			continue
		}
		seeds = append(seeds, normalized)
	}
	if len(seeds) == 0 {
		if len(urls) > 0 {
			c.logger().Warn("no sitemap URL is in scope, seeding from start URL", "url", startURL, "listed", len(urls))
		}
		seeds = []string{startURL}
	}
	return seeds
}

// admit applies the enqueue rules to a URL at the given depth. Skipped
// extensions are recorded as skipped instead of queued.
func (c *Crawler) admit(r *run, u string, depth int) {
	if depth > r.cfg.MaxDepth {
		return
	}
	if !c.Filter.Match(u) {
		return
	}

	if siteqa.HasExtension(u, r.cfg.SkipExtensions) {
		if r.frontier.Seen(u) {
			return
		}
		r.frontier.MarkSeen(u)
		if _, ok := c.Graph.Record(u); ok {
			return
		}
		c.Graph.RecordStatus(siteqa.URLRecord{
			URL:    u,
			Status: siteqa.StatusSkipped,
			Kind:   siteqa.KindUnknown,
			Depth:  depth,
		})
		r.result.Skipped++
		if r.progress != nil {
			r.progress(ProgressEvent{Type: ProgressSkipped, URL: u})
		}
		return
	}

	if !r.cfg.Recrawl && c.Graph.HasVisited(u) {
		return
	}
	if !r.frontier.Push(Item{URL: u, Depth: depth}) {
		return
	}
	if _, ok := c.Graph.Record(u); !ok {
		c.Graph.RecordStatus(siteqa.URLRecord{
			URL:    u,
			Status: siteqa.StatusPending,
			Kind:   siteqa.KindHint(u, r.cfg.DocumentExtensions),
			Depth:  depth,
		})
	}
}

// process fetches and parses one URL. It runs on a worker goroutine and
// must not touch the link graph or the corpus.
func (c *Crawler) process(ctx context.Context, cfg siteqa.CrawlConfig, item Item) outcome {
	out := outcome{item: item}

	hint := siteqa.KindHint(item.URL, cfg.DocumentExtensions)
	fetched, err := c.Fetcher.Fetch(ctx, item.URL, hint)
	if err != nil {
		out.fetchErr = err
		return out
	}
	out.fetched = fetched
	out.format = siteqa.DetectFormat(item.URL, fetched.ContentType)

	parsed, err := c.Parser.Parse(ctx, siteqa.ParseInput{
		URL:    item.URL,
		Format: out.format,
		Body:   fetched.Body,
	})
	if err != nil {
		out.parseErr = err
	} else {
		out.parsed = parsed
	}

	out.links = c.extractLinks(out)
	return out
}

// extractLinks collects the outgoing links of a fetched body from the raw
// markup and from parsed block metadata, keeping the first anchor seen.
func (c *Crawler) extractLinks(out outcome) []siteqa.Link {
	var links []siteqa.Link
	seen := make(map[string]bool)
	add := func(l siteqa.Link) {
		if l.URL == "" || seen[l.URL] {
			return
		}
		seen[l.URL] = true
		links = append(links, l)
	}

	if out.format == siteqa.FormatHTML && c.Links != nil {
		found, err := c.Links.ExtractLinks(string(out.fetched.Body), out.item.URL)
		if err != nil {
			c.logger().Debug("link extraction failed", "url", out.item.URL, "err", err)
		}
		for _, l := range found {
			add(l)
		}
	}
	if out.parsed != nil {
		for _, b := range out.parsed.Blocks {
			for i, u := range b.Metadata.LinkURLs {
				var text string
				if i < len(b.Metadata.LinkTexts) {
					text = b.Metadata.LinkTexts[i]
				}
				add(siteqa.Link{URL: u, Text: text})
			}
		}
	}
	return links
}

// handle persists one outcome. It runs on the coordinator only.
func (c *Crawler) handle(r *run, out outcome) {
	item := out.item
	r.completed++

	if out.fetchErr != nil {
		if r.ctx.Err() != nil && errors.Is(out.fetchErr, context.Canceled) {
			r.result.Interrupted++
			return
		}
		c.Graph.RecordStatus(siteqa.URLRecord{
			URL:       item.URL,
			Status:    siteqa.StatusFailed,
			Kind:      siteqa.KindHint(item.URL, r.cfg.DocumentExtensions),
			Depth:     item.Depth,
			FetchedAt: c.now(),
			ErrorCode: siteqa.ErrorCode(out.fetchErr),
			Error:     siteqa.ErrorMessage(out.fetchErr),
		})
		c.flush(r, item.URL)
		r.result.Failed++
		if r.progress != nil {
			r.progress(ProgressEvent{
				Type:      ProgressFailed,
				Completed: r.completed,
				URL:       item.URL,
				Error:     out.fetchErr,
			})
		}
		return
	}

	now := c.now()
	hash := ContentHash(out.fetched.Body)
	kind := siteqa.KindOf(out.format)
	prev, hadPrev := c.Graph.Record(item.URL)
	unchanged := hadPrev && prev.Status == siteqa.StatusFetched && prev.ContentHash == hash

	if !unchanged {
		rec := &siteqa.CorpusRecord{
			URL:         item.URL,
			Kind:        kind,
			Format:      out.format,
			Method:      out.fetched.Method,
			FetchedAt:   now,
			ContentHash: hash,
		}
		if out.parseErr != nil {
			rec.Error = out.parseErr.Error()
		} else {
			rec.Variant = out.parsed.Variant
			rec.Title = out.parsed.Title
			rec.Blocks = out.parsed.Blocks
		}
		if err := c.Corpus.SaveRecord(r.persist, rec); err != nil {
			c.logger().Error("saving corpus record", "url", item.URL, "err", err)
			r.result.StoreErrors++
			r.result.Failed++
			if r.progress != nil {
				r.progress(ProgressEvent{
					Type:      ProgressFailed,
					Completed: r.completed,
					URL:       item.URL,
					Error:     err,
				})
			}
			return
		}
	}

	for _, link := range out.links {
		child, err := siteqa.NormalizeURL(link.URL)
		if err != nil || child == item.URL || !r.scope.allows(child) {
			continue
		}
		c.Graph.RecordEdge(siteqa.LinkEdge{
			Parent:       item.URL,
			Child:        child,
			Anchor:       strings.Join(strings.Fields(link.Text), " "),
			Depth:        item.Depth + 1,
			DiscoveredAt: now,
		})
		c.admit(r, child, item.Depth+1)
	}

	status := siteqa.URLRecord{
		URL:         item.URL,
		Status:      siteqa.StatusFetched,
		Kind:        kind,
		Depth:       item.Depth,
		FetchedAt:   now,
		Size:        int64(len(out.fetched.Body)),
		ContentHash: hash,
		Method:      out.fetched.Method,
	}
	if out.parseErr != nil {
		status.ErrorCode = siteqa.EPARSE
		status.Error = out.parseErr.Error()
	}
	c.Graph.RecordStatus(status)
	c.flush(r, item.URL)

	r.result.Fetched++
	r.result.Bytes += int64(len(out.fetched.Body))
	if unchanged {
		r.result.Unchanged++
	}
	if out.parseErr != nil {
		r.result.Placeholders++
		c.logger().Warn("parse failed, stored placeholder", "url", item.URL, "err", out.parseErr)
	} else if c.TokenCounter != nil && !unchanged {
		if tokens, err := c.TokenCounter.CountTokens(r.persist, blockText(out.parsed)); err == nil {
			r.result.Tokens += tokens
		}
	}

	if r.progress != nil {
		r.progress(ProgressEvent{
			Type:      ProgressCompleted,
			Completed: r.completed,
			URL:       item.URL,
		})
	}
}

// flush persists the graph. A failure loses nothing: the dirty state is
// retried on the next flush.
func (c *Crawler) flush(r *run, url string) {
	if err := c.Graph.Flush(r.persist); err != nil {
		c.logger().Error("flushing link graph", "url", url, "err", err)
		r.result.StoreErrors++
	}
}

func (c *Crawler) config() siteqa.CrawlConfig {
	cfg := c.Config
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = siteqa.DefaultConcurrency
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = siteqa.DefaultMaxPages
	}
	if cfg.DocumentExtensions == nil {
		cfg.DocumentExtensions = siteqa.DocumentExtensions
	}
	if cfg.SkipExtensions == nil {
		cfg.SkipExtensions = siteqa.SkipExtensions
	}
	return cfg
}

func (c *Crawler) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}

func (c *Crawler) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

func blockText(rec *siteqa.StructuredRecord) string {
	var sb strings.Builder
	for _, b := range rec.Blocks {
		sb.WriteString(b.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}
