package siteqa

// Converter converts an HTML fragment to Markdown. It is used for blocks
// whose structure matters to the reader, such as tables and code.
type Converter interface {
	Convert(html string) (string, error)
}
