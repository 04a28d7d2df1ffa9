// Package goquery implements HTML parsing on top of PuerkitoBio/goquery.
package goquery

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/siteqa"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Compile-time interface verification.
var _ siteqa.LinkExtractor = (*LinkExtractor)(nil)

// LinkExtractor returns every navigable hyperlink of a page.
//
// Links are not filtered by host; the crawler applies its own scope
// policy to what is returned.
type LinkExtractor struct{}

// NewLinkExtractor creates a new LinkExtractor.
func NewLinkExtractor() *LinkExtractor {
	return &LinkExtractor{}
}

// ExtractLinks returns the links of page in document order, resolved
// against baseURL and normalized. Each URL appears once with the text of
// its first anchor. Links back to the page itself are dropped.
func (e *LinkExtractor) ExtractLinks(page string, baseURL string) ([]siteqa.Link, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, siteqa.Errorf(siteqa.EINVALID, "invalid base URL: %v", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, siteqa.Errorf(siteqa.EPARSE, "failed to parse HTML: %v", err)
	}

	return anchorLinks(doc.Nodes, base), nil
}

// anchorLinks collects the deduplicated links found in nodes and their
// descendants, in document order.
func anchorLinks(nodes []*html.Node, base *url.URL) []siteqa.Link {
	self, _ := siteqa.NormalizeURL(base.String())

	seen := make(map[string]struct{})
	var links []siteqa.Link
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			if href := attr(n, "href"); strings.TrimSpace(href) != "" {
				resolved, err := siteqa.ResolveURL(base, href)
				if _, dup := seen[resolved]; err == nil && resolved != self && !dup {
					seen[resolved] = struct{}{}
					links = append(links, siteqa.Link{URL: resolved, Text: collapse(nodeText(n))})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	for _, n := range nodes {
		visit(n)
	}
	return links
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

// collapse trims s and folds internal whitespace runs to single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
