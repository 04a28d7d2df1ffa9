package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fwojciec/siteqa"
)

// DefaultDownloadTimeout is the default timeout for document downloads.
const DefaultDownloadTimeout = siteqa.DefaultDownloadTimeout

var _ siteqa.Downloader = (*Downloader)(nil)

// Downloader fetches documents such as PDF and DOCX files under a size cap.
type Downloader struct {
	client    *http.Client
	userAgent string
}

// NewDownloader creates a Downloader.
func NewDownloader(opts ...Option) *Downloader {
	o := newOptions(DefaultDownloadTimeout, opts)
	return &Downloader{
		client:    o.client,
		userAgent: o.userAgent,
	}
}

// Download retrieves url when it is at most maxBytes long.
//
// A HEAD request rejects oversized documents before any transfer. The
// GET then checks Content-Length again and enforces the cap while
// streaming, for servers that omit or misreport the length.
func (d *Downloader) Download(ctx context.Context, url string, maxBytes int64) ([]byte, string, error) {
	if size, ok := d.probe(ctx, url); ok && maxBytes > 0 && size > maxBytes {
		return nil, "", tooLarge(url, size, maxBytes)
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", siteqa.Errorf(siteqa.EINVALID, "creating request for %s: %v", url, err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, "", transportError(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", statusError(resp.StatusCode, url)
	}

	body, err := readCapped(resp, url, maxBytes)
	if err != nil {
		return nil, "", err
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// probeTimeout bounds the HEAD request.
const probeTimeout = 10 * time.Second

// probe returns the advertised size of url. The bool result is false if
// the server does not answer HEAD with a length.
func (d *Downloader) probe(ctx context.Context, url string) (int64, bool) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, false
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, false
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK || resp.ContentLength < 0 {
		return 0, false
	}
	return resp.ContentLength, true
}
