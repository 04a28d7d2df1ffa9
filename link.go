package siteqa

// Link is a hyperlink found in page markup.
type Link struct {
	URL  string
	Text string
}

// LinkExtractor finds the hyperlinks of an HTML page. Returned URLs are
// absolute, resolved against baseURL.
type LinkExtractor interface {
	ExtractLinks(html string, baseURL string) ([]Link, error)
}
