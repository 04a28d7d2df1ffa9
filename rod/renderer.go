package rod

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/fwojciec/siteqa"
	"golang.org/x/sync/semaphore"
)

// Ensure Renderer implements siteqa.Renderer at compile time.
var _ siteqa.Renderer = (*Renderer)(nil)

// idleWindow is how long the network must stay quiet before a page
// counts as loaded.
const idleWindow = 500 * time.Millisecond

// Renderer returns the DOM of a page after its scripts ran.
//
// At most RenderConcurrency pages are open at once. Every page is
// closed when Render returns, whether it succeeded, failed or timed out.
type Renderer struct {
	manager *BrowserManager
	slots   *semaphore.Weighted
	settle  time.Duration
	closed  atomic.Bool
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithSettleDelay sets the fixed wait after network idle, for pages that
// keep rendering from timers.
func WithSettleDelay(d time.Duration) Option {
	return func(r *Renderer) {
		r.settle = d
	}
}

// WithConcurrency caps the number of pages rendering at once.
func WithConcurrency(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.slots = semaphore.NewWeighted(int64(n))
		}
	}
}

// NewRenderer creates a Renderer on top of manager. The renderer takes
// ownership of the manager and closes it on Close.
func NewRenderer(manager *BrowserManager, opts ...Option) *Renderer {
	r := &Renderer{
		manager: manager,
		slots:   semaphore.NewWeighted(siteqa.DefaultRenderConcurrency),
		settle:  siteqa.DefaultSettleDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render navigates to url, waits for the network to go idle plus the
// settle delay, and returns the serialized DOM.
func (r *Renderer) Render(ctx context.Context, url string) (string, error) {
	if r.closed.Load() {
		return "", siteqa.Errorf(siteqa.EINVALID, "renderer is closed")
	}
	if err := r.slots.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer r.slots.Release(1)

	page, release, err := r.manager.Page()
	if err != nil {
		return "", err
	}
	defer release()

	page = page.Context(ctx)

	waitIdle := page.WaitRequestIdle(idleWindow, nil, nil, nil)
	if err := page.Navigate(url); err != nil {
		return "", err
	}
	if err := page.WaitLoad(); err != nil {
		return "", err
	}
	waitIdle()

	if r.settle > 0 {
		select {
		case <-time.After(r.settle):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	html, err := page.HTML()
	if err != nil {
		return "", err
	}
	return html, nil
}

// Close shuts down the browser. Close is safe to call multiple times.
func (r *Renderer) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	return r.manager.Close()
}
