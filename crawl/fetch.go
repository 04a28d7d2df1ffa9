package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fwojciec/siteqa"
)

var _ siteqa.Fetcher = (*Fetcher)(nil)

// fetchState is a step of the fetch strategy.
type fetchState int

const (
	stateRender fetchState = iota
	stateHTTP
	stateDownload
	stateDone
	stateFailed
)

func (s fetchState) String() string {
	switch s {
	case stateRender:
		return "render"
	case stateHTTP:
		return "http"
	case stateDownload:
		return "download"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	}
	return fmt.Sprintf("fetchState(%d)", int(s))
}

// Fetcher implements the render-then-fallback fetch strategy.
//
// Pages are rendered first. Any render failure, including a render
// timeout, falls back to a plain HTTP GET and the result is tagged
// http-fallback. Documents skip rendering and are downloaded directly
// under the size cap. Every attempt runs under its own timeout.
type Fetcher struct {
	Renderer   siteqa.Renderer
	Getter     siteqa.PageGetter
	Downloader siteqa.Downloader
	Config     siteqa.FetchConfig
	Logger     *slog.Logger
}

// Fetch retrieves url according to the kind hint.
// A failure keeps the class of the last attempt: ETIMEOUT, ETOOLARGE or
// EFETCH. Cancellation of ctx itself is returned unclassified.
func (f *Fetcher) Fetch(ctx context.Context, url string, hint siteqa.ResourceKind) (*siteqa.FetchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	state := stateRender
	if hint == siteqa.KindDocument {
		state = stateDownload
	} else if f.Renderer == nil || f.Config.DisableRender {
		state = stateHTTP
	}

	var (
		result   *siteqa.FetchResult
		attempts []error
	)
	for state != stateDone && state != stateFailed {
		switch state {
		case stateRender:
			html, err := f.render(ctx, url)
			if err == nil {
				result = &siteqa.FetchResult{
					URL:         url,
					Body:        []byte(html),
					ContentType: "text/html",
					Method:      siteqa.MethodRendered,
				}
				state = stateDone
				continue
			}
			if ctx.Err() != nil {
				return nil, fmt.Errorf("render %s: %w", url, ctx.Err())
			}
			attempts = append(attempts, fmt.Errorf("render: %w", err))
			f.logger().Warn("render failed, falling back to http", "url", url, "err", err)
			state = stateHTTP

		case stateHTTP:
			body, contentType, err := f.get(ctx, url)
			if err != nil {
				if ctx.Err() != nil {
					return nil, fmt.Errorf("get %s: %w", url, ctx.Err())
				}
				attempts = append(attempts, fmt.Errorf("http: %w", err))
				state = stateFailed
				continue
			}
			result = &siteqa.FetchResult{
				URL:         url,
				Body:        body,
				ContentType: contentType,
				Method:      siteqa.MethodHTTPFallback,
			}
			state = stateDone

		case stateDownload:
			body, contentType, err := f.download(ctx, url)
			if err != nil {
				if ctx.Err() != nil {
					return nil, fmt.Errorf("download %s: %w", url, ctx.Err())
				}
				attempts = append(attempts, fmt.Errorf("download: %w", err))
				state = stateFailed
				continue
			}
			result = &siteqa.FetchResult{
				URL:         url,
				Body:        body,
				ContentType: contentType,
				Method:      siteqa.MethodDirectDownload,
			}
			state = stateDone
		}
	}

	if state == stateFailed {
		last := attempts[len(attempts)-1]
		return nil, siteqa.WrapError(classify(last), errors.Join(attempts...), "fetching %s failed: %s", url, describe(attempts))
	}
	return result, nil
}

func (f *Fetcher) render(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.Config.RenderTimeout)
	defer cancel()

	html, err := f.Renderer.Render(ctx, url)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(html) == "" {
		return "", siteqa.Errorf(siteqa.EFETCH, "renderer returned empty markup")
	}
	if limit := f.Config.MaxFileSize; limit > 0 && int64(len(html)) > limit {
		return "", siteqa.Errorf(siteqa.ETOOLARGE, "rendered markup of %s is %d bytes, limit is %d", url, len(html), limit)
	}
	return html, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, string, error) {
	if f.Getter == nil {
		return nil, "", siteqa.Errorf(siteqa.EFETCH, "no http fallback configured")
	}
	ctx, cancel := context.WithTimeout(ctx, f.Config.HTTPTimeout)
	defer cancel()
	return f.Getter.Get(ctx, url, f.Config.MaxFileSize)
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, string, error) {
	if f.Downloader == nil {
		return nil, "", siteqa.Errorf(siteqa.EFETCH, "no downloader configured")
	}
	ctx, cancel := context.WithTimeout(ctx, f.Config.DownloadTimeout)
	defer cancel()
	return f.Downloader.Download(ctx, url, f.Config.MaxFileSize)
}

func (f *Fetcher) logger() *slog.Logger {
	if f.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return f.Logger
}

// classify maps an attempt error to a fetch error code.
func classify(err error) string {
	switch code := siteqa.ErrorCode(err); code {
	case siteqa.ETOOLARGE, siteqa.ETIMEOUT:
		return code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return siteqa.ETIMEOUT
	}
	return siteqa.EFETCH
}

func describe(attempts []error) string {
	parts := make([]string, len(attempts))
	for i, err := range attempts {
		parts[i] = err.Error()
	}
	return strings.Join(parts, "; ")
}
