package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatBytes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "10.0 MB", formatBytes(10<<20))
	assert.Equal(t, "2.0 GB", formatBytes(2<<30))
}

func TestFormatTokens(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "~999 tokens", formatTokens(999))
	assert.Equal(t, "~2k tokens", formatTokens(1500))
}

func TestShortURL(t *testing.T) {
	t.Parallel()

	t.Run("drops the scheme", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "example.edu/admissions", shortURL("https://example.edu/admissions", 40))
	})

	t.Run("keeps the tail of long URLs", func(t *testing.T) {
		t.Parallel()
		got := shortURL("https://example.edu/academics/programs/computer-science", 20)
		assert.Equal(t, ".../computer-science", got)
		assert.Len(t, []rune(got), 20)
	})

	t.Run("counts runes", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, ".../études", shortURL("https://example.fr/programmes/études", 10))
	})

	t.Run("tiny limits", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "es", shortURL("https://example.edu/fees", 2))
		assert.Equal(t, "example.edu/fees", shortURL("https://example.edu/fees", 0))
	})
}
