// Package slog decorates siteqa services with structured logging.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/siteqa"
)

var (
	_ siteqa.Fetcher    = (*LoggingFetcher)(nil)
	_ siteqa.Renderer   = (*LoggingRenderer)(nil)
	_ siteqa.PageGetter = (*LoggingPageGetter)(nil)
	_ siteqa.Downloader = (*LoggingDownloader)(nil)
)

// LoggingFetcher wraps a Fetcher with logging of the chosen method.
type LoggingFetcher struct {
	next   siteqa.Fetcher
	logger *slog.Logger
}

// NewLoggingFetcher creates a new LoggingFetcher.
func NewLoggingFetcher(next siteqa.Fetcher, logger *slog.Logger) *LoggingFetcher {
	return &LoggingFetcher{next: next, logger: logger}
}

// Fetch delegates to the wrapped fetcher and logs the operation.
func (f *LoggingFetcher) Fetch(ctx context.Context, url string, hint siteqa.ResourceKind) (res *siteqa.FetchResult, err error) {
	defer func(begin time.Time) {
		var method siteqa.FetchMethod
		var size int
		if res != nil {
			method = res.Method
			size = len(res.Body)
		}
		f.logger.Log(ctx, levelFor(err), "fetch",
			"url", url,
			"kind", hint,
			"method", method,
			"bytes", size,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return f.next.Fetch(ctx, url, hint)
}

// LoggingRenderer wraps a Renderer with logging.
type LoggingRenderer struct {
	next   siteqa.Renderer
	logger *slog.Logger
}

// NewLoggingRenderer creates a new LoggingRenderer.
func NewLoggingRenderer(next siteqa.Renderer, logger *slog.Logger) *LoggingRenderer {
	return &LoggingRenderer{next: next, logger: logger}
}

// Render delegates to the wrapped renderer and logs the operation.
func (r *LoggingRenderer) Render(ctx context.Context, url string) (html string, err error) {
	defer func(begin time.Time) {
		r.logger.Log(ctx, levelFor(err), "render",
			"url", url,
			"bytes", len(html),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return r.next.Render(ctx, url)
}

// Close delegates to the wrapped renderer.
func (r *LoggingRenderer) Close() error {
	return r.next.Close()
}

// LoggingPageGetter wraps a PageGetter with logging.
type LoggingPageGetter struct {
	next   siteqa.PageGetter
	logger *slog.Logger
}

// NewLoggingPageGetter creates a new LoggingPageGetter.
func NewLoggingPageGetter(next siteqa.PageGetter, logger *slog.Logger) *LoggingPageGetter {
	return &LoggingPageGetter{next: next, logger: logger}
}

// Get delegates to the wrapped getter and logs the operation.
func (g *LoggingPageGetter) Get(ctx context.Context, url string, maxBytes int64) (body []byte, contentType string, err error) {
	defer func(begin time.Time) {
		g.logger.Log(ctx, levelFor(err), "http get",
			"url", url,
			"bytes", len(body),
			"content_type", contentType,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return g.next.Get(ctx, url, maxBytes)
}

// LoggingDownloader wraps a Downloader with logging.
type LoggingDownloader struct {
	next   siteqa.Downloader
	logger *slog.Logger
}

// NewLoggingDownloader creates a new LoggingDownloader.
func NewLoggingDownloader(next siteqa.Downloader, logger *slog.Logger) *LoggingDownloader {
	return &LoggingDownloader{next: next, logger: logger}
}

// Download delegates to the wrapped downloader and logs the operation.
func (d *LoggingDownloader) Download(ctx context.Context, url string, maxBytes int64) (body []byte, contentType string, err error) {
	defer func(begin time.Time) {
		d.logger.Log(ctx, levelFor(err), "download",
			"url", url,
			"bytes", len(body),
			"content_type", contentType,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return d.next.Download(ctx, url, maxBytes)
}
