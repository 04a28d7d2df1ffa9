package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/siteqa"
)

var _ siteqa.SitemapService = (*LoggingSitemapService)(nil)

// LoggingSitemapService logs how many pages each sitemap lookup yields.
type LoggingSitemapService struct {
	next   siteqa.SitemapService
	logger *slog.Logger
}

// NewLoggingSitemapService creates a new LoggingSitemapService.
func NewLoggingSitemapService(next siteqa.SitemapService, logger *slog.Logger) *LoggingSitemapService {
	return &LoggingSitemapService{next: next, logger: logger}
}

// ParseSitemap delegates to the wrapped service and logs the operation.
func (s *LoggingSitemapService) ParseSitemap(ctx context.Context, sitemapURL string) (urls []string, err error) {
	defer func(begin time.Time) {
		s.logger.Log(ctx, levelFor(err), "sitemap parse",
			"url", sitemapURL,
			"pages", len(urls),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.ParseSitemap(ctx, sitemapURL)
}

// DiscoverURLs delegates to the wrapped service and logs the operation.
func (s *LoggingSitemapService) DiscoverURLs(ctx context.Context, baseURL string) (urls []string, err error) {
	defer func(begin time.Time) {
		s.logger.Log(ctx, levelFor(err), "sitemap discovery",
			"url", baseURL,
			"pages", len(urls),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.DiscoverURLs(ctx, baseURL)
}
