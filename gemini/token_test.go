package gemini_test

import (
	"context"
	"strings"
	"testing"

	"github.com/fwojciec/siteqa"
	"github.com/fwojciec/siteqa/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCounter_CountTokens(t *testing.T) {
	t.Parallel()

	tc, err := gemini.NewTokenCounter("gemini-2.0-flash")
	require.NoError(t, err)

	var _ siteqa.TokenCounter = tc

	t.Run("empty context is zero tokens", func(t *testing.T) {
		t.Parallel()

		count, err := tc.CountTokens(context.Background(), "")

		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("grows with the context", func(t *testing.T) {
		t.Parallel()

		block := "Context from: Source: https://example.edu/fees (match score 0.9100)\nContent:\nThe application fee is $50.\n"
		one, err := tc.CountTokens(context.Background(), block)
		require.NoError(t, err)
		assert.Positive(t, one)

		three, err := tc.CountTokens(context.Background(), strings.Repeat(block, 3))
		require.NoError(t, err)
		assert.Greater(t, three, one)
	})
}

func TestNewTokenCounter_UnknownModel(t *testing.T) {
	t.Parallel()

	_, err := gemini.NewTokenCounter("no-such-model")

	require.Error(t, err)
	assert.Equal(t, siteqa.EINVALID, siteqa.ErrorCode(err))
}
