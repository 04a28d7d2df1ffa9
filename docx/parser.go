// Package docx extracts paragraphs, headings, list items and tables from
// Word documents. The archive parts are read with archive/zip and their
// XML with beevik/etree.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/beevik/etree"
	"github.com/fwojciec/siteqa"
)

// Compile-time interface verification.
var _ siteqa.Parser = (*Parser)(nil)

const (
	documentPart      = "word/document.xml"
	relationshipsPart = "word/_rels/document.xml.rels"
	corePart          = "docProps/core.xml"
)

// Parser turns a DOCX document into typed blocks. Paragraph styles named
// Title and HeadingN become title and heading blocks, numbered paragraphs
// become list items, and tables become one table block each.
type Parser struct{}

// NewParser creates a new Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse implements siteqa.Parser. Archives without a main document part
// return EPARSE.
func (p *Parser) Parse(ctx context.Context, in siteqa.ParseInput) (*siteqa.StructuredRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	zr, err := zip.NewReader(bytes.NewReader(in.Body), int64(len(in.Body)))
	if err != nil {
		return nil, siteqa.WrapError(siteqa.EPARSE, err, "opening DOCX archive: %v", err)
	}

	doc, err := readPart(zr, documentPart)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, siteqa.Errorf(siteqa.EPARSE, "DOCX archive has no %s", documentPart)
	}

	links := map[string]string{}
	if rels, err := readPart(zr, relationshipsPart); err == nil && rels != nil {
		links = hyperlinkTargets(rels)
	}

	body := findChild(doc.Root(), "body")
	if body == nil {
		return nil, siteqa.Errorf(siteqa.EPARSE, "DOCX document has no body")
	}

	b := &builder{links: links}
	b.walk(body)

	rec := &siteqa.StructuredRecord{
		Variant: siteqa.VariantDocument,
		Title:   b.title,
		Blocks:  b.blocks,
	}
	if rec.Title == "" {
		if core, err := readPart(zr, corePart); err == nil && core != nil {
			if t := findDescendant(core.Root(), "title"); t != nil {
				rec.Title = strings.TrimSpace(t.Text())
			}
		}
	}
	if rec.Title == "" {
		rec.Title = siteqa.TitleFromURL(in.URL)
	}
	return rec, nil
}

// readPart parses the named archive part. A missing part returns nil
// without error.
func readPart(zr *zip.Reader, name string) (*etree.Document, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, siteqa.WrapError(siteqa.EPARSE, err, "opening %s: %v", name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, siteqa.WrapError(siteqa.EPARSE, err, "reading %s: %v", name, err)
		}
		doc := etree.NewDocument()
		if err := doc.ReadFromBytes(data); err != nil {
			return nil, siteqa.WrapError(siteqa.EPARSE, err, "parsing %s: %v", name, err)
		}
		if doc.Root() == nil {
			return nil, siteqa.Errorf(siteqa.EPARSE, "%s has no root element", name)
		}
		return doc, nil
	}
	return nil, nil
}

// hyperlinkTargets maps relationship IDs to external hyperlink targets.
func hyperlinkTargets(rels *etree.Document) map[string]string {
	out := make(map[string]string)
	for _, rel := range rels.Root().ChildElements() {
		if rel.Tag != "Relationship" || !strings.HasSuffix(rel.SelectAttrValue("Type", ""), "/hyperlink") {
			continue
		}
		out[rel.SelectAttrValue("Id", "")] = rel.SelectAttrValue("Target", "")
	}
	return out
}

// builder accumulates blocks while walking the document body.
// Element tags are compared by local name; etree keeps the namespace
// prefix in Space.
type builder struct {
	links  map[string]string
	title  string
	blocks []siteqa.Block
}

func (b *builder) walk(parent *etree.Element) {
	for _, el := range parent.ChildElements() {
		switch el.Tag {
		case "p":
			b.paragraph(el)
		case "tbl":
			b.table(el)
		case "sdt":
			if content := findChild(el, "sdtContent"); content != nil {
				b.walk(content)
			}
		}
	}
}

func (b *builder) paragraph(p *etree.Element) {
	text, linkURLs, linkTexts := b.runs(p)
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	block := siteqa.Block{
		Type: siteqa.BlockParagraph,
		Text: text,
		Metadata: siteqa.BlockMetadata{
			LinkURLs:  linkURLs,
			LinkTexts: linkTexts,
		},
	}

	if props := findChild(p, "pPr"); props != nil {
		style := ""
		if s := findChild(props, "pStyle"); s != nil {
			style = strings.ToLower(attrValue(s, "val"))
		}
		switch {
		case style == "title":
			if b.title == "" {
				b.title = text
			}
			block.Type = siteqa.BlockTitle
		case strings.HasPrefix(style, "heading"):
			block.Type = siteqa.BlockHeading
			block.Metadata.Level = headingLevel(style)
		case findChild(props, "numPr") != nil || strings.HasPrefix(style, "list"):
			block.Type = siteqa.BlockListItem
		}
	}
	b.blocks = append(b.blocks, block)
}

// runs returns the text of a paragraph together with the targets and
// texts of its hyperlinks.
func (b *builder) runs(p *etree.Element) (string, []string, []string) {
	var sb strings.Builder
	var urls, texts []string

	var visit func(el *etree.Element)
	visit = func(el *etree.Element) {
		for _, child := range el.ChildElements() {
			switch child.Tag {
			case "t":
				sb.WriteString(child.Text())
			case "tab":
				sb.WriteByte('\t')
			case "br", "cr":
				sb.WriteByte('\n')
			case "hyperlink":
				start := sb.Len()
				visit(child)
				if target := b.links[attrValue(child, "id")]; target != "" {
					urls = append(urls, target)
					texts = append(texts, strings.TrimSpace(sb.String()[start:]))
				}
			case "pPr", "rPr":
			default:
				visit(child)
			}
		}
	}
	visit(p)
	return sb.String(), urls, texts
}

// table emits one block with a line per row and cells separated by " | ".
func (b *builder) table(tbl *etree.Element) {
	var rows []string
	var urls, texts []string
	for _, tr := range tbl.ChildElements() {
		if tr.Tag != "tr" {
			continue
		}
		var cells []string
		for _, tc := range tr.ChildElements() {
			if tc.Tag != "tc" {
				continue
			}
			var parts []string
			for _, p := range tc.ChildElements() {
				if p.Tag != "p" {
					continue
				}
				text, u, tx := b.runs(p)
				if text = strings.Join(strings.Fields(text), " "); text != "" {
					parts = append(parts, text)
				}
				urls = append(urls, u...)
				texts = append(texts, tx...)
			}
			cells = append(cells, strings.Join(parts, " "))
		}
		if row := strings.Join(cells, " | "); strings.Trim(row, " |") != "" {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return
	}
	b.blocks = append(b.blocks, siteqa.Block{
		Type:     siteqa.BlockTable,
		Text:     strings.Join(rows, "\n"),
		Metadata: siteqa.BlockMetadata{LinkURLs: urls, LinkTexts: texts},
	})
}

func headingLevel(style string) int {
	digits := strings.TrimPrefix(style, "heading")
	level := 0
	for _, r := range strings.TrimSpace(digits) {
		if r < '0' || r > '9' {
			break
		}
		level = level*10 + int(r-'0')
	}
	if level == 0 {
		return 1
	}
	return level
}

func findChild(el *etree.Element, tag string) *etree.Element {
	for _, child := range el.ChildElements() {
		if child.Tag == tag {
			return child
		}
	}
	return nil
}

func findDescendant(el *etree.Element, tag string) *etree.Element {
	for _, child := range el.ChildElements() {
		if child.Tag == tag {
			return child
		}
		if found := findDescendant(child, tag); found != nil {
			return found
		}
	}
	return nil
}

// attrValue returns the value of the attribute with the given local name
// regardless of its namespace prefix.
func attrValue(el *etree.Element, key string) string {
	for _, a := range el.Attr {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}
