package crawl

import (
	"context"

	"github.com/fwojciec/siteqa"
)

var _ siteqa.Parser = Parsers(nil)

// Parsers routes a body to the parser registered for its format.
type Parsers map[siteqa.Format]siteqa.Parser

// Parse delegates to the parser for in.Format.
// Returns EPARSE when no parser handles the format.
func (p Parsers) Parse(ctx context.Context, in siteqa.ParseInput) (*siteqa.StructuredRecord, error) {
	parser, ok := p[in.Format]
	if !ok || parser == nil {
		return nil, siteqa.Errorf(siteqa.EPARSE, "no parser for %s content", in.Format)
	}
	return parser.Parse(ctx, in)
}
