// Package trafilatura locates the main content of a page using
// markusmobius/go-trafilatura.
package trafilatura

import (
	"bytes"
	"strings"

	"github.com/fwojciec/siteqa"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

var _ siteqa.Extractor = (*Extractor)(nil)

// DefaultMinWords is the shortest main text accepted as content.
const DefaultMinWords = 20

// Extractor isolates the main text of a page with trafilatura, falling
// back to its bundled readability and dom-distiller passes. Links and
// tables stay in the output so the block parser can still annotate them.
type Extractor struct {
	opts     trafilatura.Options
	minWords int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMinWords sets the word threshold below which the content is
// discarded and only the title is returned. Zero accepts anything.
func WithMinWords(n int) Option {
	return func(e *Extractor) { e.minWords = n }
}

// NewExtractor creates a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		opts: trafilatura.Options{
			EnableFallback: true,
			IncludeLinks:   true,
		},
		minWords: DefaultMinWords,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the page title and the main content as HTML.
func (e *Extractor) Extract(rawHTML string) (*siteqa.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, siteqa.Errorf(siteqa.EINVALID, "empty HTML input")
	}

	doc, err := trafilatura.Extract(strings.NewReader(rawHTML), e.opts)
	if err != nil {
		return nil, siteqa.WrapError(siteqa.EPARSE, err, "trafilatura extraction: %v", err)
	}

	res := &siteqa.ExtractResult{Title: strings.TrimSpace(doc.Metadata.Title)}
	if doc.ContentNode == nil || len(strings.Fields(doc.ContentText)) < e.minWords {
		return res, nil
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc.ContentNode); err != nil {
		return nil, siteqa.WrapError(siteqa.EPARSE, err, "rendering extracted content: %v", err)
	}
	res.ContentHTML = buf.String()
	return res, nil
}
