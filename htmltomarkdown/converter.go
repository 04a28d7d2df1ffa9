// Package htmltomarkdown renders HTML fragments as Markdown using
// JohannesKaufmann/html-to-markdown.
package htmltomarkdown

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/fwojciec/siteqa"
)

var _ siteqa.Converter = (*Converter)(nil)

// Converter keeps the structure of tables and code blocks when they are
// flattened into unit text. Fee schedules and course grids read poorly
// as run-on paragraphs.
type Converter struct {
	md *converter.Converter
}

// NewConverter creates a Converter with the commonmark and table plugins.
func NewConverter() *Converter {
	return &Converter{md: converter.NewConverter(converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	))}
}

// Convert renders fragment as Markdown with trailing spaces and runs of
// blank lines removed.
func (c *Converter) Convert(fragment string) (string, error) {
	if strings.TrimSpace(fragment) == "" {
		return "", siteqa.Errorf(siteqa.EINVALID, "empty HTML input")
	}

	out, err := c.md.ConvertString(fragment)
	if err != nil {
		return "", siteqa.WrapError(siteqa.EPARSE, err, "converting HTML to markdown: %v", err)
	}
	return tidy(out), nil
}

// tidy trims each line's trailing space and keeps at most one blank line
// between paragraphs.
func tidy(md string) string {
	lines := strings.Split(strings.TrimSpace(md), "\n")
	out := lines[:0]
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
