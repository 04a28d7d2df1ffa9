// Package readability locates the main content of a page using
// go-shiori/go-readability.
package readability

import (
	"strings"

	"github.com/fwojciec/siteqa"
	"github.com/go-shiori/go-readability"
)

var _ siteqa.Extractor = (*Extractor)(nil)

// DefaultMinWords is the shortest article accepted as main content.
// Department landing pages are often a heading and two sentences, so
// this is lower than what news-oriented extractors use.
const DefaultMinWords = 20

// Extractor runs Mozilla's Readability algorithm over a page.
//
// An article shorter than the word threshold comes back with its title
// but no content, which lets a siteqa.Extractors chain move on to the
// next extractor instead of keeping a stray caption.
type Extractor struct {
	minWords int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMinWords sets the word threshold. Zero accepts any article.
func WithMinWords(n int) Option {
	return func(e *Extractor) { e.minWords = n }
}

// NewExtractor creates a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{minWords: DefaultMinWords}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the article title and its cleaned HTML.
func (e *Extractor) Extract(rawHTML string) (*siteqa.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, siteqa.Errorf(siteqa.EINVALID, "empty HTML input")
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), nil)
	if err != nil {
		return nil, siteqa.WrapError(siteqa.EPARSE, err, "readability extraction: %v", err)
	}

	res := &siteqa.ExtractResult{Title: strings.TrimSpace(article.Title)}
	if len(strings.Fields(article.TextContent)) >= e.minWords {
		res.ContentHTML = article.Content
	}
	return res, nil
}
