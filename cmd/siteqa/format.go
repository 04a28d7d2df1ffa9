package main

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// formatBytes renders a byte count with a binary unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit && exp < 3; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}

// formatTokens renders an approximate token count.
func formatTokens(n int) string {
	if n < 1000 {
		return fmt.Sprintf("~%d tokens", n)
	}
	return fmt.Sprintf("~%dk tokens", (n+500)/1000)
}

// shortURL drops the scheme and, past max runes, keeps the tail of the
// path, which tells pages of one site apart.
func shortURL(rawURL string, max int) string {
	s := rawURL
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	n := utf8.RuneCountInString(s)
	if max <= 0 || n <= max {
		return s
	}
	if max <= 3 {
		return string([]rune(s)[n-max:])
	}
	return "..." + string([]rune(s)[n-max+3:])
}
