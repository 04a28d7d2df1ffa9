package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/siteqa"
)

// Ensure LoggingParser implements siteqa.Parser.
var _ siteqa.Parser = (*LoggingParser)(nil)

// LoggingParser wraps a Parser with logging of the resulting block count.
type LoggingParser struct {
	next   siteqa.Parser
	logger *slog.Logger
}

// NewLoggingParser creates a new LoggingParser.
func NewLoggingParser(next siteqa.Parser, logger *slog.Logger) *LoggingParser {
	return &LoggingParser{next: next, logger: logger}
}

// Parse delegates to the wrapped parser and logs the operation.
func (p *LoggingParser) Parse(ctx context.Context, in siteqa.ParseInput) (rec *siteqa.StructuredRecord, err error) {
	defer func(begin time.Time) {
		var blocks int
		if rec != nil {
			blocks = len(rec.Blocks)
		}
		p.logger.Log(ctx, levelFor(err), "parse",
			"url", in.URL,
			"format", in.Format,
			"bytes", len(in.Body),
			"blocks", blocks,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return p.next.Parse(ctx, in)
}
