package slog_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/fwojciec/siteqa/mock"
	siteslog "github.com/fwojciec/siteqa/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingEmbedder(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	inner := &mock.Embedder{
		EmbedFn: func(_ context.Context, texts []string) ([][]float32, error) {
			return make([][]float32, len(texts)), nil
		},
		ModelFn: func() string { return "hash-64" },
	}

	e := siteslog.NewLoggingEmbedder(inner, logger)
	vectors, err := e.Embed(context.Background(), []string{"a", "b", "c"})

	require.NoError(t, err)
	assert.Len(t, vectors, 3)
	assert.Equal(t, "hash-64", e.Model())
	output := buf.String()
	assert.Contains(t, output, "msg=embed")
	assert.Contains(t, output, "model=hash-64")
	assert.Contains(t, output, "texts=3")
	assert.Contains(t, output, "vectors=3")
}

func TestLoggingGenerator(t *testing.T) {
	t.Parallel()

	t.Run("logs sizes", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.Generator{
			GenerateFn: func(context.Context, string, string) (string, error) {
				return "Fees are $50.", nil
			},
		}

		g := siteslog.NewLoggingGenerator(inner, logger)
		answer, err := g.Generate(context.Background(), "0123456789", "fees?")

		require.NoError(t, err)
		assert.Equal(t, "Fees are $50.", answer)
		output := buf.String()
		assert.Contains(t, output, "msg=generate")
		assert.Contains(t, output, "context_bytes=10")
		assert.Contains(t, output, "answer_bytes=13")
	})

	t.Run("logs error on failure", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.Generator{
			GenerateFn: func(context.Context, string, string) (string, error) {
				return "", errors.New("quota exceeded")
			},
		}

		g := siteslog.NewLoggingGenerator(inner, logger)
		_, err := g.Generate(context.Background(), "ctx", "q")

		require.Error(t, err)
		assert.Contains(t, buf.String(), "err=\"quota exceeded\"")
	})
}
