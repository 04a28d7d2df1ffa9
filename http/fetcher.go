// Package http provides plain HTTP implementations of the page getter,
// the document downloader and the sitemap service.
package http

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/fwojciec/siteqa"
)

// DefaultFetchTimeout is the default timeout for HTTP requests.
const DefaultFetchTimeout = siteqa.DefaultHTTPTimeout

// Ensure Fetcher implements siteqa.PageGetter at compile time.
var _ siteqa.PageGetter = (*Fetcher)(nil)

// Fetcher retrieves pages with plain HTTP GET requests. It does not
// execute JavaScript and serves as the fallback when rendering fails.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// Option configures a Fetcher or a Downloader.
type Option func(*options)

type options struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

// WithTimeout sets the timeout for HTTP requests.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}

// WithClient uses client instead of a new http.Client.
// The timeout option is ignored when a client is given.
func WithClient(client *http.Client) Option {
	return func(o *options) {
		o.client = client
	}
}

func newOptions(timeout time.Duration, opts []Option) options {
	o := options{
		timeout:   timeout,
		userAgent: siteqa.DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.client == nil {
		o.client = &http.Client{Timeout: o.timeout}
	}
	return o
}

// NewFetcher creates a new HTTP-based Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	o := newOptions(DefaultFetchTimeout, opts)
	return &Fetcher{
		client:    o.client,
		userAgent: o.userAgent,
	}
}

// Get retrieves url and returns the body and its Content-Type.
// Bodies larger than maxBytes fail with ETOOLARGE; no partial body is
// returned.
func (f *Fetcher) Get(ctx context.Context, url string, maxBytes int64) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", siteqa.Errorf(siteqa.EINVALID, "creating request for %s: %v", url, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
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

// readCapped reads the response body, rejecting it as soon as more than
// maxBytes arrive. A non-positive maxBytes disables the cap.
func readCapped(resp *http.Response, url string, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, transportError(url, err)
		}
		return body, nil
	}

	if resp.ContentLength > maxBytes {
		return nil, tooLarge(url, resp.ContentLength, maxBytes)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, transportError(url, err)
	}
	if int64(len(body)) > maxBytes {
		return nil, siteqa.Errorf(siteqa.ETOOLARGE, "%s exceeds the %d byte limit", url, maxBytes)
	}
	return body, nil
}

func tooLarge(url string, size, maxBytes int64) error {
	return siteqa.Errorf(siteqa.ETOOLARGE, "%s is %s bytes, limit is %d", url, strconv.FormatInt(size, 10), maxBytes)
}

// transportError classifies a client error as ETIMEOUT or EFETCH.
// Cancellation of the caller's context is returned unwrapped.
func transportError(url string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return siteqa.WrapError(siteqa.ETIMEOUT, err, "timed out fetching %s", url)
	}
	return siteqa.WrapError(siteqa.EFETCH, err, "fetching %s: %v", url, err)
}

// statusError formats a non-200 response.
func statusError(code int, url string) error {
	return siteqa.Errorf(siteqa.EFETCH, "HTTP %d for %s", code, url)
}
