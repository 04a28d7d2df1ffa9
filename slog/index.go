package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/siteqa"
)

var (
	_ siteqa.Embedder  = (*LoggingEmbedder)(nil)
	_ siteqa.Generator = (*LoggingGenerator)(nil)
)

// LoggingEmbedder wraps an Embedder with logging.
type LoggingEmbedder struct {
	next   siteqa.Embedder
	logger *slog.Logger
}

// NewLoggingEmbedder creates a new LoggingEmbedder.
func NewLoggingEmbedder(next siteqa.Embedder, logger *slog.Logger) *LoggingEmbedder {
	return &LoggingEmbedder{next: next, logger: logger}
}

// Embed delegates to the wrapped embedder and logs the operation.
func (e *LoggingEmbedder) Embed(ctx context.Context, texts []string) (vectors [][]float32, err error) {
	defer func(begin time.Time) {
		e.logger.Log(ctx, levelFor(err), "embed",
			"model", e.next.Model(),
			"texts", len(texts),
			"vectors", len(vectors),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return e.next.Embed(ctx, texts)
}

// Model delegates to the wrapped embedder.
func (e *LoggingEmbedder) Model() string {
	return e.next.Model()
}

// LoggingGenerator wraps a Generator with logging.
type LoggingGenerator struct {
	next   siteqa.Generator
	logger *slog.Logger
}

// NewLoggingGenerator creates a new LoggingGenerator.
func NewLoggingGenerator(next siteqa.Generator, logger *slog.Logger) *LoggingGenerator {
	return &LoggingGenerator{next: next, logger: logger}
}

// Generate delegates to the wrapped generator and logs the operation.
func (g *LoggingGenerator) Generate(ctx context.Context, contextText, query string) (answer string, err error) {
	defer func(begin time.Time) {
		g.logger.Log(ctx, levelFor(err), "generate",
			"context_bytes", len(contextText),
			"answer_bytes", len(answer),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return g.next.Generate(ctx, contextText, query)
}
