// Package pdf extracts page text from PDF documents using
// ledongthuc/pdf.
package pdf

import (
	"bytes"
	"context"
	"strings"

	"github.com/fwojciec/siteqa"
	"github.com/ledongthuc/pdf"
)

// Compile-time interface verification.
var _ siteqa.Parser = (*Parser)(nil)

// maxTitleLen bounds a first line used as the document title.
const maxTitleLen = 200

// Parser turns a PDF into one page block per page with text.
type Parser struct{}

// NewParser creates a new Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse implements siteqa.Parser. Malformed documents return EPARSE.
func (p *Parser) Parse(ctx context.Context, in siteqa.ParseInput) (*siteqa.StructuredRecord, error) {
	if len(in.Body) == 0 {
		return nil, siteqa.Errorf(siteqa.EPARSE, "empty PDF body for %s", in.URL)
	}

	title, pages, err := readPages(ctx, in.Body)
	if err != nil {
		return nil, err
	}

	rec := &siteqa.StructuredRecord{Variant: siteqa.VariantDocument}
	for i, text := range pages {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		rec.Blocks = append(rec.Blocks, siteqa.Block{
			Type:     siteqa.BlockPage,
			Text:     text,
			Metadata: siteqa.BlockMetadata{PageNumber: i + 1},
		})
	}

	rec.Title = strings.TrimSpace(title)
	if rec.Title == "" && len(rec.Blocks) > 0 {
		rec.Title = firstLine(rec.Blocks[0].Text)
	}
	if rec.Title == "" {
		rec.Title = siteqa.TitleFromURL(in.URL)
	}
	return rec, nil
}

// readPages returns the Info title and the plain text of every page,
// indexed by page number minus one. The pdf package panics on some
// malformed input, which is reported as EPARSE.
func readPages(ctx context.Context, body []byte) (title string, pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = siteqa.Errorf(siteqa.EPARSE, "malformed PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", nil, siteqa.WrapError(siteqa.EPARSE, err, "opening PDF: %v", err)
	}

	title = r.Trailer().Key("Info").Key("Title").Text()

	n := r.NumPage()
	pages = make([]string, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", nil, siteqa.WrapError(siteqa.EPARSE, err, "reading page %d: %v", i, err)
		}
		pages[i-1] = text
	}
	return title, pages, nil
}

// firstLine returns the first non-empty line when it is short enough to
// be a title.
func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > maxTitleLen {
			return ""
		}
		return line
	}
	return ""
}
