package siteqa

import (
	"context"
	"regexp"
	"slices"
)

// SitemapService reads seed URLs from sitemaps.
type SitemapService interface {
	// ParseSitemap returns every page URL listed in the sitemap at
	// sitemapURL, following sitemap indexes recursively.
	ParseSitemap(ctx context.Context, sitemapURL string) ([]string, error)

	// DiscoverURLs looks for a site's sitemaps via robots.txt Sitemap
	// directives, falling back to /sitemap.xml, and returns the page URLs
	// they list. Returns an empty slice when the site has no sitemap.
	DiscoverURLs(ctx context.Context, baseURL string) ([]string, error)
}

// URLFilter narrows a crawl to part of a site, such as admissions pages
// only or everything except the news archive. A nil filter admits every
// URL.
type URLFilter struct {
	// Include, when non-empty, admits only URLs matching one of them.
	Include []*regexp.Regexp

	// Exclude rejects matching URLs, even those Include admitted.
	Exclude []*regexp.Regexp
}

// NewURLFilter compiles include and exclude patterns. It returns a nil
// filter when both lists are empty and EINVALID for a pattern that does
// not compile.
func NewURLFilter(include, exclude []string) (*URLFilter, error) {
	if len(include) == 0 && len(exclude) == 0 {
		return nil, nil
	}
	in, err := compilePatterns("include", include)
	if err != nil {
		return nil, err
	}
	ex, err := compilePatterns("exclude", exclude)
	if err != nil {
		return nil, err
	}
	return &URLFilter{Include: in, Exclude: ex}, nil
}

func compilePatterns(kind string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, Errorf(EINVALID, "invalid %s pattern %q: %v", kind, p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// Match reports whether url passes the filter.
func (f *URLFilter) Match(url string) bool {
	if f == nil {
		return true
	}
	matches := func(re *regexp.Regexp) bool { return re.MatchString(url) }
	if len(f.Include) > 0 && !slices.ContainsFunc(f.Include, matches) {
		return false
	}
	return !slices.ContainsFunc(f.Exclude, matches)
}
