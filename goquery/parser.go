package goquery

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/siteqa"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Compile-time interface verification.
var _ siteqa.Parser = (*Parser)(nil)

// Parser turns an HTML page into typed blocks.
//
// Site chrome (navigation, header and footer regions, including those of
// known documentation frameworks) becomes blocks of the matching type so
// downstream stages can filter them. Everything else is split into
// headings, paragraphs, list items, tables and code blocks in document
// order. Each block carries the links it contains.
type Parser struct {
	extractor siteqa.Extractor
	converter siteqa.Converter
	detector  *Detector
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithExtractor restricts parsing to the main content located by e.
// Pages where extraction fails or finds nothing are parsed whole.
func WithExtractor(e siteqa.Extractor) ParserOption {
	return func(p *Parser) {
		p.extractor = e
	}
}

// WithConverter renders table and code blocks as Markdown with c.
func WithConverter(c siteqa.Converter) ParserOption {
	return func(p *Parser) {
		p.converter = c
	}
}

// NewParser creates a new Parser.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{detector: NewDetector()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse implements siteqa.Parser.
func (p *Parser) Parse(ctx context.Context, in siteqa.ParseInput) (*siteqa.StructuredRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base, err := url.Parse(in.URL)
	if err != nil {
		return nil, siteqa.Errorf(siteqa.EPARSE, "invalid page URL %q: %v", in.URL, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(in.Body))
	if err != nil {
		return nil, siteqa.Errorf(siteqa.EPARSE, "failed to parse HTML of %s: %v", in.URL, err)
	}
	title := collapse(doc.Find("title").First().Text())

	w := &walker{
		base:      base,
		converter: p.converter,
		roles:     make(map[*html.Node]siteqa.BlockType),
	}

	if content, contentTitle, ok := p.mainContent(in.Body); ok {
		doc = content
		if title == "" {
			title = contentTitle
		}
	} else {
		w.markChrome(doc, chromeFor(p.detector.DetectDocument(doc)))
	}

	if title == "" {
		title = collapse(doc.Find("h1").First().Text())
	}
	if title != "" {
		w.blocks = append(w.blocks, siteqa.Block{Type: siteqa.BlockTitle, Text: title})
	}

	doc.Find("script, style, noscript, template, svg, iframe").Remove()
	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	for _, n := range root.Nodes {
		w.children(n)
	}
	w.flush()

	return &siteqa.StructuredRecord{
		Variant: siteqa.VariantPage,
		Title:   title,
		Blocks:  w.blocks,
	}, nil
}

// mainContent runs the extractor, if any, and parses its output.
func (p *Parser) mainContent(body []byte) (*goquery.Document, string, bool) {
	if p.extractor == nil {
		return nil, "", false
	}
	res, err := p.extractor.Extract(string(body))
	if err != nil || strings.TrimSpace(res.ContentHTML) == "" {
		return nil, "", false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.ContentHTML))
	if err != nil {
		return nil, "", false
	}
	return doc, collapse(res.Title), true
}

// walker emits blocks while traversing the DOM in document order.
// Consecutive inline content between block elements is buffered and
// emitted as one paragraph.
type walker struct {
	base      *url.URL
	converter siteqa.Converter
	roles     map[*html.Node]siteqa.BlockType
	blocks    []siteqa.Block
	inline    []*html.Node
}

// markChrome assigns block types to chrome regions. When regions nest,
// the outermost is reached first during the walk and wins.
func (w *walker) markChrome(doc *goquery.Document, c chrome) {
	mark := func(selector string, typ siteqa.BlockType) {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			for _, n := range s.Nodes {
				if _, ok := w.roles[n]; !ok {
					w.roles[n] = typ
				}
			}
		})
	}
	mark(c.Navigation, siteqa.BlockNavigation)
	mark(c.Header, siteqa.BlockHeader)
	mark(c.Footer, siteqa.BlockFooter)
}

func (w *walker) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.node(c)
	}
}

func (w *walker) node(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.inline = append(w.inline, n)
		return
	case html.ElementNode:
	default:
		return
	}

	if typ, ok := w.roles[n]; ok {
		w.flush()
		w.emit(typ, []*html.Node{n}, collapse(nodeText(n)), 0)
		return
	}

	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		w.flush()
		w.emit(siteqa.BlockHeading, []*html.Node{n}, collapse(nodeText(n)), int(n.Data[1]-'0'))
	case atom.P:
		w.flush()
		w.emit(siteqa.BlockParagraph, []*html.Node{n}, collapse(nodeText(n)), 0)
	case atom.Li:
		w.flush()
		w.listItem(n)
	case atom.Table:
		w.flush()
		w.emit(siteqa.BlockTable, []*html.Node{n}, w.tableText(n), 0)
	case atom.Pre:
		w.flush()
		w.emit(siteqa.BlockCode, []*html.Node{n}, w.codeText(n), 0)
	default:
		if blockElements[n.DataAtom] || w.containsBlock(n) {
			w.flush()
			w.children(n)
			w.flush()
			return
		}
		w.inline = append(w.inline, n)
	}
}

// listItem emits the item's own text and then walks nested lists, so
// each level of a nested list becomes its own block.
func (w *walker) listItem(n *html.Node) {
	var own, nested []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Ul || c.DataAtom == atom.Ol) {
			nested = append(nested, c)
			continue
		}
		own = append(own, c)
	}
	w.emit(siteqa.BlockListItem, own, collapse(textOf(own)), 0)
	for _, list := range nested {
		w.node(list)
	}
}

func (w *walker) flush() {
	if len(w.inline) == 0 {
		return
	}
	nodes := w.inline
	w.inline = nil
	w.emit(siteqa.BlockParagraph, nodes, collapse(textOf(nodes)), 0)
}

func (w *walker) emit(typ siteqa.BlockType, nodes []*html.Node, text string, level int) {
	if strings.TrimSpace(text) == "" {
		return
	}
	block := siteqa.Block{Type: typ, Text: text}
	block.Metadata.Level = level
	for _, link := range anchorLinks(nodes, w.base) {
		block.Metadata.LinkURLs = append(block.Metadata.LinkURLs, link.URL)
		block.Metadata.LinkTexts = append(block.Metadata.LinkTexts, link.Text)
	}
	w.blocks = append(w.blocks, block)
}

// tableText renders the table as Markdown when a converter is set and
// otherwise as one line per row with cells separated by " | ".
func (w *walker) tableText(n *html.Node) string {
	if md, ok := w.convert(n); ok {
		return md
	}
	var rows []string
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Tr {
			var cells []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
					cells = append(cells, collapse(nodeText(c)))
				}
			}
			if row := strings.Join(cells, " | "); strings.Trim(row, " |") != "" {
				rows = append(rows, row)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return strings.Join(rows, "\n")
}

// codeText keeps the original line structure of preformatted text.
func (w *walker) codeText(n *html.Node) string {
	if md, ok := w.convert(n); ok {
		return md
	}
	return strings.Trim(nodeText(n), "\n")
}

func (w *walker) convert(n *html.Node) (string, bool) {
	if w.converter == nil {
		return "", false
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", false
	}
	md, err := w.converter.Convert(buf.String())
	if err != nil || strings.TrimSpace(md) == "" {
		return "", false
	}
	return strings.TrimSpace(md), true
}

// containsBlock reports whether an inline element wraps block content,
// as in a link around a heading.
func (w *walker) containsBlock(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if _, ok := w.roles[c]; ok || blockElements[c.DataAtom] || c.DataAtom == atom.Table || c.DataAtom == atom.Pre {
			return true
		}
		if w.containsBlock(c) {
			return true
		}
	}
	return false
}

var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Body: true, atom.Caption: true, atom.Dd: true, atom.Details: true,
	atom.Dialog: true, atom.Div: true, atom.Dl: true, atom.Dt: true,
	atom.Fieldset: true, atom.Figcaption: true, atom.Figure: true, atom.Footer: true,
	atom.Form: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true, atom.Header: true,
	atom.Hr: true, atom.Html: true, atom.Li: true, atom.Main: true,
	atom.Nav: true, atom.Ol: true, atom.P: true, atom.Section: true,
	atom.Summary: true, atom.Ul: true, atom.Br: true,
}

// nodeText returns the text under n. Block boundaries become spaces so
// adjacent blocks do not run together.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			}
		}
		boundary := n.Type == html.ElementNode &&
			(blockElements[n.DataAtom] || n.DataAtom == atom.Td || n.DataAtom == atom.Th || n.DataAtom == atom.Tr)
		if boundary {
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
		if boundary {
			sb.WriteByte(' ')
		}
	}
	visit(n)
	return sb.String()
}

func textOf(nodes []*html.Node) string {
	var sb strings.Builder
	for _, n := range nodes {
		sb.WriteString(nodeText(n))
	}
	return sb.String()
}
