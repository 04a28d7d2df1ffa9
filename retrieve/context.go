package retrieve

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/fwojciec/siteqa"
)

const blockSeparator = "\n---\n"

// assemble renders candidates in rank order as provenance-labelled blocks
// and cuts the result to the configured budgets. It returns the context
// and the candidates that made it in.
func (e *Engine) assemble(ctx context.Context, candidates []Candidate) (string, []Candidate, error) {
	maxChars := e.Config.ContextChars
	if maxChars <= 0 {
		maxChars = siteqa.DefaultContextChars
	}

	var blocks []string
	var used []Candidate
	remaining := maxChars
	for _, c := range candidates {
		block := formatBlock(c)
		if len(blocks) > 0 {
			remaining -= len(blockSeparator)
		}
		if remaining <= 0 {
			break
		}
		if len(block) > remaining {
			block = truncate(block, remaining)
		}
		blocks = append(blocks, block)
		used = append(used, c)
		remaining -= len(block)
	}

	if e.Tokens != nil && e.Config.ContextTokens > 0 {
		var err error
		blocks, err = e.fitTokens(ctx, blocks)
		if err != nil {
			return "", nil, err
		}
		used = used[:len(blocks)]
	}
	return strings.Join(blocks, blockSeparator), used, nil
}

// fitTokens drops trailing blocks until the context fits ContextTokens.
// The first block is kept and shortened in proportion if it alone is over.
func (e *Engine) fitTokens(ctx context.Context, blocks []string) ([]string, error) {
	budget := e.Config.ContextTokens
	for len(blocks) > 0 {
		n, err := e.Tokens.CountTokens(ctx, strings.Join(blocks, blockSeparator))
		if err != nil {
			return nil, siteqa.WrapError(siteqa.EGENERATE, err, "counting context tokens: %v", err)
		}
		if n <= budget {
			return blocks, nil
		}
		if len(blocks) == 1 {
			keep := len(blocks[0]) * budget / n
			blocks[0] = truncate(blocks[0], keep)
			return blocks, nil
		}
		blocks = blocks[:len(blocks)-1]
	}
	return blocks, nil
}

func formatBlock(c Candidate) string {
	label := "Source: " + c.URL + " (match score " + formatScore(c.Score) + ")"
	if c.ViaLinks {
		label = "Source (from link search): " + c.URL
	}
	return "Context from: " + label + "\nContent:\n" + c.Text + "\n"
}

func formatScore(s float64) string {
	return strconv.FormatFloat(s, 'f', 4, 64)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if n >= len(s) {
		return s
	}
	if n <= 0 {
		return ""
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
