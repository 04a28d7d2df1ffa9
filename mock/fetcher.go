package mock

import (
	"context"

	"github.com/fwojciec/siteqa"
)

var (
	_ siteqa.Fetcher    = (*Fetcher)(nil)
	_ siteqa.Renderer   = (*Renderer)(nil)
	_ siteqa.PageGetter = (*PageGetter)(nil)
	_ siteqa.Downloader = (*Downloader)(nil)
)

// Fetcher is a mock implementation of siteqa.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, url string, hint siteqa.ResourceKind) (*siteqa.FetchResult, error)
}

func (f *Fetcher) Fetch(ctx context.Context, url string, hint siteqa.ResourceKind) (*siteqa.FetchResult, error) {
	return f.FetchFn(ctx, url, hint)
}

// Renderer is a mock implementation of siteqa.Renderer.
type Renderer struct {
	RenderFn func(ctx context.Context, url string) (string, error)
	CloseFn  func() error
}

func (r *Renderer) Render(ctx context.Context, url string) (string, error) {
	return r.RenderFn(ctx, url)
}

func (r *Renderer) Close() error {
	return r.CloseFn()
}

// PageGetter is a mock implementation of siteqa.PageGetter.
type PageGetter struct {
	GetFn func(ctx context.Context, url string, maxBytes int64) ([]byte, string, error)
}

func (g *PageGetter) Get(ctx context.Context, url string, maxBytes int64) ([]byte, string, error) {
	return g.GetFn(ctx, url, maxBytes)
}

// Downloader is a mock implementation of siteqa.Downloader.
type Downloader struct {
	DownloadFn func(ctx context.Context, url string, maxBytes int64) ([]byte, string, error)
}

func (d *Downloader) Download(ctx context.Context, url string, maxBytes int64) ([]byte, string, error) {
	return d.DownloadFn(ctx, url, maxBytes)
}
