package siteqa

import "context"

// FetchResult is a successfully retrieved body.
type FetchResult struct {
	URL         string
	Body        []byte
	ContentType string
	Method      FetchMethod
}

// Fetcher retrieves a URL, choosing between rendering, plain HTTP and
// direct download based on the kind hint.
type Fetcher interface {
	Fetch(ctx context.Context, url string, hint ResourceKind) (*FetchResult, error)
}

// Renderer produces the post-JavaScript markup of a page using a
// headless browser. Implementations wait for network idle and then a
// fixed settle delay before capturing the markup.
type Renderer interface {
	Render(ctx context.Context, url string) (html string, err error)

	// Close releases browser resources.
	Close() error
}

// PageGetter performs a plain HTTP GET without executing JavaScript.
// The body is capped at maxBytes during transfer.
type PageGetter interface {
	Get(ctx context.Context, url string, maxBytes int64) (body []byte, contentType string, err error)
}

// Downloader fetches binary documents. Resources larger than maxBytes
// fail with ETOOLARGE and no partial body is returned.
type Downloader interface {
	Download(ctx context.Context, url string, maxBytes int64) (body []byte, contentType string, err error)
}
