package siteqa_test

import (
	"errors"
	"testing"

	"github.com/fwojciec/siteqa"
	"github.com/fwojciec/siteqa/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extractor(res *siteqa.ExtractResult, err error) *mock.Extractor {
	return &mock.Extractor{ExtractFn: func(string) (*siteqa.ExtractResult, error) { return res, err }}
}

func TestExtractors_Extract(t *testing.T) {
	t.Parallel()

	t.Run("first extractor with content wins", func(t *testing.T) {
		t.Parallel()

		e := siteqa.Extractors{
			extractor(&siteqa.ExtractResult{Title: "empty"}, nil),
			extractor(nil, errors.New("boom")),
			extractor(&siteqa.ExtractResult{Title: "second", ContentHTML: "<p>x</p>"}, nil),
			extractor(&siteqa.ExtractResult{Title: "third", ContentHTML: "<p>y</p>"}, nil),
		}

		res, err := e.Extract("<html></html>")
		require.NoError(t, err)
		assert.Equal(t, "second", res.Title)
	})

	t.Run("returns the last error when nothing has content", func(t *testing.T) {
		t.Parallel()

		e := siteqa.Extractors{
			extractor(&siteqa.ExtractResult{Title: "empty"}, nil),
			extractor(nil, siteqa.Errorf(siteqa.EPARSE, "unreadable")),
		}

		_, err := e.Extract("<html></html>")
		require.Error(t, err)
		assert.Equal(t, siteqa.EPARSE, siteqa.ErrorCode(err))
	})

	t.Run("returns the empty result when nothing failed", func(t *testing.T) {
		t.Parallel()

		res, err := siteqa.Extractors{extractor(&siteqa.ExtractResult{Title: "t"}, nil)}.Extract("")
		require.NoError(t, err)
		assert.Equal(t, "t", res.Title)

		res, err = siteqa.Extractors{}.Extract("")
		require.NoError(t, err)
		assert.Empty(t, res.ContentHTML)
	})
}
