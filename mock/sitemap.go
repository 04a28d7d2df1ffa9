package mock

import (
	"context"

	"github.com/fwojciec/siteqa"
)

var _ siteqa.SitemapService = (*SitemapService)(nil)

// SitemapService is a mock implementation of siteqa.SitemapService.
type SitemapService struct {
	ParseSitemapFn func(ctx context.Context, sitemapURL string) ([]string, error)
	DiscoverURLsFn func(ctx context.Context, baseURL string) ([]string, error)
}

func (s *SitemapService) ParseSitemap(ctx context.Context, sitemapURL string) ([]string, error) {
	return s.ParseSitemapFn(ctx, sitemapURL)
}

func (s *SitemapService) DiscoverURLs(ctx context.Context, baseURL string) ([]string, error) {
	return s.DiscoverURLsFn(ctx, baseURL)
}
