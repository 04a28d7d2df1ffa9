// Package clean turns corpus records into the text units that get
// embedded. Cleaning is a pure function of the record: the same record
// always yields byte-identical units.
package clean

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/fwojciec/siteqa"
)

// templateMarker matches unrendered template placeholders such as
// "{{ page.title }}".
var templateMarker = regexp.MustCompile(`\{\{.*?\}\}`)

// Cleaner filters and normalizes blocks and groups them into units.
type Cleaner struct {
	// DropTypes lists block types removed as boilerplate.
	DropTypes []siteqa.BlockType

	// MaxUnitChars caps the length of a unit in runes. Blocks are never
	// split unless one block alone exceeds the cap.
	MaxUnitChars int
}

// NewCleaner creates a Cleaner from cfg.
func NewCleaner(cfg siteqa.CleanConfig) *Cleaner {
	return &Cleaner{
		DropTypes:    slices.Clone(cfg.DropBlockTypes),
		MaxUnitChars: cfg.MaxUnitChars,
	}
}

// Clean returns the units of rec in position order. Placeholder records
// have no units.
func (c *Cleaner) Clean(rec *siteqa.CorpusRecord) []siteqa.TextUnit {
	if rec == nil || rec.Placeholder() {
		return nil
	}
	domain, _ := siteqa.Domain(rec.URL)

	var pieces []string
	for _, b := range rec.Blocks {
		if slices.Contains(c.DropTypes, b.Type) {
			continue
		}
		text := normalize(b.Text)
		if text == "" {
			continue
		}
		pieces = append(pieces, text+annotate(text, b.Metadata))
	}

	var units []siteqa.TextUnit
	for i, text := range c.group(pieces) {
		units = append(units, siteqa.TextUnit{
			URL:      rec.URL,
			Domain:   domain,
			Position: i,
			Text:     text,
		})
	}
	return units
}

// normalize strips template markers and collapses whitespace.
func normalize(s string) string {
	s = templateMarker.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

// annotate renders the links of a block. A block that is itself a single
// link gets its target in brackets; other blocks list every link with
// its label.
func annotate(text string, meta siteqa.BlockMetadata) string {
	if len(meta.LinkURLs) == 0 {
		return ""
	}
	if i := slices.Index(meta.LinkTexts, text); i >= 0 && i < len(meta.LinkURLs) {
		return "\n  [" + meta.LinkURLs[i] + "]"
	}

	var sb strings.Builder
	sb.WriteString("\n  (Associated Links):")
	for i, u := range meta.LinkURLs {
		label := u
		if i < len(meta.LinkTexts) {
			if t := normalize(meta.LinkTexts[i]); t != "" {
				label = t
			}
		}
		sb.WriteString("\n  - " + label + " [" + u + "]")
	}
	return sb.String()
}

// group packs pieces into units of at most MaxUnitChars runes, joining
// pieces with a blank line.
func (c *Cleaner) group(pieces []string) []string {
	limit := c.MaxUnitChars
	if limit <= 0 {
		limit = siteqa.DefaultMaxUnitChars
	}

	var units []string
	var cur strings.Builder
	curLen := 0
	emit := func() {
		if curLen > 0 {
			units = append(units, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, piece := range pieces {
		n := utf8.RuneCountInString(piece)
		if n > limit {
			emit()
			units = append(units, split(piece, limit)...)
			continue
		}
		if curLen > 0 && curLen+2+n > limit {
			emit()
		}
		if curLen > 0 {
			cur.WriteString("\n\n")
			curLen += 2
		}
		cur.WriteString(piece)
		curLen += n
	}
	emit()
	return units
}

// split cuts s into chunks of at most limit runes, breaking at the last
// whitespace of a chunk when there is one in its second half.
func split(s string, limit int) []string {
	var out []string
	runes := []rune(s)
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if unicode.IsSpace(runes[i]) {
				cut = i
				break
			}
		}
		if chunk := strings.TrimSpace(string(runes[:cut])); chunk != "" {
			out = append(out, chunk)
		}
		runes = runes[cut:]
		for len(runes) > 0 && unicode.IsSpace(runes[0]) {
			runes = runes[1:]
		}
	}
	if chunk := strings.TrimSpace(string(runes)); chunk != "" {
		out = append(out, chunk)
	}
	return out
}
