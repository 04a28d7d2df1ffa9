package gemini

import (
	"context"

	"github.com/fwojciec/siteqa"
	"google.golang.org/genai"
	"google.golang.org/genai/tokenizer"
)

var _ siteqa.TokenCounter = (*TokenCounter)(nil)

// TokenCounter measures text with the model's local tokenizer. The
// retrieval budget and crawl summaries are counted offline, so neither
// needs an API key.
type TokenCounter struct {
	local *tokenizer.LocalTokenizer
}

// NewTokenCounter loads the tokenizer for model. Returns EINVALID when
// the model has no local tokenizer.
func NewTokenCounter(model string) (*TokenCounter, error) {
	local, err := tokenizer.NewLocalTokenizer(model)
	if err != nil {
		return nil, siteqa.WrapError(siteqa.EINVALID, err, "no local tokenizer for model %q: %v", model, err)
	}
	return &TokenCounter{local: local}, nil
}

// CountTokens returns the token count of text as a single user turn.
func (tc *TokenCounter) CountTokens(ctx context.Context, text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	resp, err := tc.local.CountTokens(genai.Text(text), nil)
	if err != nil {
		return 0, siteqa.WrapError(siteqa.EINTERNAL, err, "counting tokens: %v", err)
	}
	return int(resp.TotalTokens), nil
}
