package http

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/beevik/etree"
	"github.com/fwojciec/siteqa"
)

// MaxSitemapBytes caps a single sitemap file after decompression.
const MaxSitemapBytes = 50 << 20

// maxRobotsBytes caps robots.txt, which is only scanned for Sitemap lines.
const maxRobotsBytes = 512 << 10

// maxIndexDepth bounds how deeply sitemap indexes may nest.
const maxIndexDepth = 4

var _ siteqa.SitemapService = (*SitemapService)(nil)

// SitemapService reads crawl seeds from sitemaps. Plain and gzipped
// sitemaps are accepted, with or without the sitemaps.org namespace.
type SitemapService struct {
	client    *http.Client
	userAgent string
}

// NewSitemapService creates a SitemapService.
func NewSitemapService(opts ...Option) *SitemapService {
	o := newOptions(DefaultFetchTimeout, opts)
	return &SitemapService{
		client:    o.client,
		userAgent: o.userAgent,
	}
}

// ParseSitemap returns the page URLs listed in the sitemap at sitemapURL
// in document order, following sitemap indexes. Any sitemap that cannot
// be fetched or parsed fails the whole call.
func (s *SitemapService) ParseSitemap(ctx context.Context, sitemapURL string) ([]string, error) {
	w := s.newWalk(true)
	if err := w.visit(ctx, sitemapURL, 0); err != nil {
		return nil, err
	}
	return w.pages, nil
}

// DiscoverURLs looks for sitemaps of the site baseURL belongs to, first
// in the Sitemap lines of robots.txt, then at /sitemap.xml.
//
// Discovery is best effort: sitemaps that fail are skipped and a site
// without any yields an empty slice. When baseURL has a path, only pages
// under that path are returned.
func (s *SitemapService) DiscoverURLs(ctx context.Context, baseURL string) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return nil, siteqa.Errorf(siteqa.EINVALID, "invalid base URL %q", baseURL)
	}
	at := func(path string) string {
		return (&url.URL{Scheme: base.Scheme, Host: base.Host, Path: path}).String()
	}

	locations, err := s.robotsSitemaps(ctx, at("/robots.txt"))
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil || len(locations) == 0 {
		locations = []string{at("/sitemap.xml")}
	}

	w := s.newWalk(false)
	for _, loc := range locations {
		if err := w.visit(ctx, loc, 0); err != nil {
			return nil, err
		}
	}

	prefix := strings.TrimSuffix(base.Path, "/")
	pages := make([]string, 0, len(w.pages))
	for _, p := range w.pages {
		if underPath(p, prefix) {
			pages = append(pages, p)
		}
	}
	return pages, nil
}

// underPath reports whether rawURL's path is prefix or below it, so that
// /admissions matches /admissions/apply but not /admissions-faq.
func underPath(rawURL, prefix string) bool {
	if prefix == "" {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Path == prefix || strings.HasPrefix(u.Path, prefix+"/")
}

// robotsSitemaps returns the Sitemap directives of a robots.txt file.
func (s *SitemapService) robotsSitemaps(ctx context.Context, robotsURL string) ([]string, error) {
	body, err := s.get(ctx, robotsURL, maxRobotsBytes)
	if err != nil {
		return nil, err
	}

	var locations []string
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "sitemap") {
			continue
		}
		if loc := strings.TrimSpace(value); loc != "" {
			locations = append(locations, loc)
		}
	}
	return locations, sc.Err()
}

// sitemapWalk collects pages across one or more sitemap trees. Each
// sitemap is read once and each page is listed once.
type sitemapWalk struct {
	s       *SitemapService
	strict  bool
	visited map[string]struct{}
	listed  map[string]struct{}
	pages   []string
}

func (s *SitemapService) newWalk(strict bool) *sitemapWalk {
	return &sitemapWalk{
		s:       s,
		strict:  strict,
		visited: make(map[string]struct{}),
		listed:  make(map[string]struct{}),
	}
}

// visit reads one sitemap. In lenient mode only cancellation is an error.
func (w *sitemapWalk) visit(ctx context.Context, loc string, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := w.visited[loc]; ok {
		return nil
	}
	w.visited[loc] = struct{}{}

	root, err := w.s.fetchXML(ctx, loc)
	if err != nil {
		if w.strict || ctx.Err() != nil {
			return err
		}
		return nil
	}

	switch root.Tag {
	case "sitemapindex":
		if depth >= maxIndexDepth {
			if w.strict {
				return siteqa.Errorf(siteqa.EPARSE, "sitemap indexes nested deeper than %d at %s", maxIndexDepth, loc)
			}
			return nil
		}
		for _, child := range locs(root, "sitemap") {
			if err := w.visit(ctx, child, depth+1); err != nil {
				return err
			}
		}
	case "urlset":
		for _, page := range locs(root, "url") {
			if _, ok := w.listed[page]; ok {
				continue
			}
			w.listed[page] = struct{}{}
			w.pages = append(w.pages, page)
		}
	default:
		if w.strict {
			return siteqa.Errorf(siteqa.EPARSE, "%s is not a sitemap: root element <%s>", loc, root.Tag)
		}
	}
	return nil
}

// locs returns the non-empty <loc> values of the entries named tag.
// Tags are local names, so namespace prefixes do not matter.
func locs(root *etree.Element, tag string) []string {
	var out []string
	for _, entry := range root.SelectElements(tag) {
		if loc := entry.SelectElement("loc"); loc != nil {
			if v := strings.TrimSpace(loc.Text()); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

// fetchXML downloads a sitemap, decompressing gzip bodies, and returns
// its root element.
func (s *SitemapService) fetchXML(ctx context.Context, loc string) (*etree.Element, error) {
	body, err := s.get(ctx, loc, MaxSitemapBytes)
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(body, []byte{0x1f, 0x8b}) {
		if body, err = gunzip(body); err != nil {
			return nil, siteqa.WrapError(siteqa.EPARSE, err, "decompressing sitemap %s: %v", loc, err)
		}
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, siteqa.WrapError(siteqa.EPARSE, err, "parsing sitemap %s: %v", loc, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, siteqa.Errorf(siteqa.EPARSE, "empty sitemap %s", loc)
	}
	return root, nil
}

func gunzip(body []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	out, err := io.ReadAll(io.LimitReader(zr, MaxSitemapBytes+1))
	if err != nil {
		return nil, err
	}
	if len(out) > MaxSitemapBytes {
		return nil, siteqa.Errorf(siteqa.ETOOLARGE, "decompressed sitemap exceeds %d bytes", MaxSitemapBytes)
	}
	return out, nil
}

// get issues a GET and returns the body, capped at maxBytes.
func (s *SitemapService) get(ctx context.Context, target string, maxBytes int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, siteqa.Errorf(siteqa.EINVALID, "creating request for %s: %v", target, err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, transportError(target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, target)
	}
	return readCapped(resp, target, maxBytes)
}
