package mock

import (
	"context"

	"github.com/fwojciec/siteqa"
)

var (
	_ siteqa.Parser    = (*Parser)(nil)
	_ siteqa.Extractor = (*Extractor)(nil)
	_ siteqa.Converter = (*Converter)(nil)
)

// Parser is a mock implementation of siteqa.Parser.
type Parser struct {
	ParseFn func(ctx context.Context, in siteqa.ParseInput) (*siteqa.StructuredRecord, error)
}

func (p *Parser) Parse(ctx context.Context, in siteqa.ParseInput) (*siteqa.StructuredRecord, error) {
	return p.ParseFn(ctx, in)
}

// Extractor is a mock implementation of siteqa.Extractor.
type Extractor struct {
	ExtractFn func(html string) (*siteqa.ExtractResult, error)
}

func (e *Extractor) Extract(html string) (*siteqa.ExtractResult, error) {
	return e.ExtractFn(html)
}

// Converter is a mock implementation of siteqa.Converter.
type Converter struct {
	ConvertFn func(html string) (string, error)
}

func (c *Converter) Convert(html string) (string, error) {
	return c.ConvertFn(html)
}

var _ siteqa.LinkExtractor = (*LinkExtractor)(nil)

// LinkExtractor is a mock implementation of siteqa.LinkExtractor.
type LinkExtractor struct {
	ExtractLinksFn func(html string, baseURL string) ([]siteqa.Link, error)
}

func (e *LinkExtractor) ExtractLinks(html string, baseURL string) ([]siteqa.Link, error) {
	return e.ExtractLinksFn(html, baseURL)
}
