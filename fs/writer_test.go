package fs_test

import (
	"strings"
	"testing"

	"github.com/fwojciec/siteqa"
	"github.com/fwojciec/siteqa/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLToName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		url    string
		prefix string
	}{
		{name: "simple path", url: "https://example.com/docs/api/users", prefix: "docs_api_users-"},
		{name: "root path becomes index", url: "https://example.com/", prefix: "index-"},
		{name: "trailing slash is dropped", url: "https://example.com/docs/", prefix: "docs-"},
		{name: "keeps extension", url: "https://example.com/files/catalog.pdf", prefix: "files_catalog.pdf-"},
		{name: "replaces unsafe characters", url: "https://example.com/a%20b/../c", prefix: "a_b_.._c-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := fs.URLToName(tt.url)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(got, tt.prefix), "got %q", got)
			assert.NotContains(t, got, "/")
		})
	}

	t.Run("query strings yield distinct names", func(t *testing.T) {
		t.Parallel()

		a, err := fs.URLToName("https://example.com/news?page=1")
		require.NoError(t, err)
		b, err := fs.URLToName("https://example.com/news?page=2")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("is stable", func(t *testing.T) {
		t.Parallel()

		a, _ := fs.URLToName("https://example.com/x")
		b, _ := fs.URLToName("https://example.com/x")
		assert.Equal(t, a, b)
	})

	t.Run("rejects invalid URLs", func(t *testing.T) {
		t.Parallel()

		_, err := fs.URLToName("://bad")
		require.Error(t, err)
		assert.Equal(t, siteqa.EINVALID, siteqa.ErrorCode(err))
	})
}
