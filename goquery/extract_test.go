package goquery_test

import (
	"testing"

	"github.com/fwojciec/siteqa"
	"github.com/fwojciec/siteqa/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkExtractor_ExtractLinks(t *testing.T) {
	t.Parallel()

	t.Run("returns resolved links in document order", func(t *testing.T) {
		t.Parallel()

		html := `<html><body>
<nav><a href="/docs/intro">Intro</a></nav>
<main>
	<a href="guide">  Getting
	started </a>
	<a href="https://other.example.org/x">External</a>
</main>
</body></html>`

		links, err := goquery.NewLinkExtractor().ExtractLinks(html, "https://example.com/docs/")
		require.NoError(t, err)
		assert.Equal(t, []siteqa.Link{
			{URL: "https://example.com/docs/intro", Text: "Intro"},
			{URL: "https://example.com/docs/guide", Text: "Getting started"},
			{URL: "https://other.example.org/x", Text: "External"},
		}, links)
	})

	t.Run("keeps the first anchor text of duplicates", func(t *testing.T) {
		t.Parallel()

		html := `<a href="/a">First</a><a href="/a#section">Second</a>`

		links, err := goquery.NewLinkExtractor().ExtractLinks(html, "https://example.com/")
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, "First", links[0].Text)
	})

	t.Run("skips self links and non-navigational schemes", func(t *testing.T) {
		t.Parallel()

		html := `<a href="#top">Top</a>
<a href="/page">Self</a>
<a href="mailto:a@example.com">Mail</a>
<a href="javascript:void(0)">JS</a>
<a href="">Empty</a>
<a href="/other">Other</a>`

		links, err := goquery.NewLinkExtractor().ExtractLinks(html, "https://example.com/page")
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, "https://example.com/other", links[0].URL)
	})

	t.Run("rejects an invalid base URL", func(t *testing.T) {
		t.Parallel()

		_, err := goquery.NewLinkExtractor().ExtractLinks("<a href='/a'>A</a>", "://bad")
		require.Error(t, err)
		assert.Equal(t, siteqa.EINVALID, siteqa.ErrorCode(err))
	})
}
