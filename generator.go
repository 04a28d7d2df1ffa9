package siteqa

import "context"

// Generator produces an answer from assembled context and a question.
// Failures surface as EGENERATE.
type Generator interface {
	Generate(ctx context.Context, context string, query string) (string, error)
}
