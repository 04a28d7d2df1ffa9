// Package rod renders pages in headless Chrome using go-rod.
package rod

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/fwojciec/siteqa"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultRecycleAfter is the number of pages a browser opens before it is
// replaced.
const DefaultRecycleAfter = 75

// BrowserManager owns the Chrome process shared by all renders.
//
// Chrome memory keeps growing under load even when every page is closed,
// so the browser is replaced after a fixed number of pages. A replaced
// browser stays alive until the last page opened on it is released, so
// recycling never cuts off a render in flight. BrowserManager is safe for
// concurrent use.
type BrowserManager struct {
	recycleAfter int
	bin          string
	logger       *slog.Logger

	mu      sync.Mutex
	current *generation
	closed  bool
}

// generation is one browser process and the bookkeeping for its pages.
type generation struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	opened   int
	open     int
	retired  bool

	once sync.Once
	err  error
}

func (g *generation) shutdown() error {
	g.once.Do(func() {
		g.err = g.browser.Close()
		g.launcher.Kill()
	})
	return g.err
}

// ManagerOption configures a BrowserManager.
type ManagerOption func(*BrowserManager)

// WithRecycleAfter sets how many pages a browser opens before it is
// replaced.
func WithRecycleAfter(n int) ManagerOption {
	return func(bm *BrowserManager) {
		if n > 0 {
			bm.recycleAfter = n
		}
	}
}

// WithBrowserBin uses the Chrome binary at path instead of the one the
// launcher finds or downloads.
func WithBrowserBin(path string) ManagerOption {
	return func(bm *BrowserManager) {
		bm.bin = path
	}
}

// WithManagerLogger logs browser launches and recycling.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(bm *BrowserManager) {
		bm.logger = logger
	}
}

// NewBrowserManager launches a headless browser.
// Close must be called when the BrowserManager is no longer needed.
func NewBrowserManager(opts ...ManagerOption) (*BrowserManager, error) {
	bm := &BrowserManager{
		recycleAfter: DefaultRecycleAfter,
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(bm)
	}

	g, err := bm.launch()
	if err != nil {
		return nil, err
	}
	bm.current = g
	return bm, nil
}

// Page opens a blank page. The returned release func closes the page and
// must be called once the page is no longer used.
func (bm *BrowserManager) Page() (*rod.Page, func(), error) {
	bm.mu.Lock()
	if bm.closed {
		bm.mu.Unlock()
		return nil, nil, siteqa.Errorf(siteqa.EINVALID, "browser is closed")
	}
	if bm.current.opened >= bm.recycleAfter {
		bm.recycle()
	}
	g := bm.current
	g.opened++
	g.open++
	bm.mu.Unlock()

	page, err := g.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		bm.release(g)
		return nil, nil, fmt.Errorf("opening page: %w", err)
	}

	var once sync.Once
	return page, func() {
		once.Do(func() {
			_ = page.Close()
			bm.release(g)
		})
	}, nil
}

func (bm *BrowserManager) release(g *generation) {
	bm.mu.Lock()
	g.open--
	done := g.retired && g.open == 0
	bm.mu.Unlock()
	if done {
		_ = g.shutdown()
	}
}

// recycle swaps in a new browser and retires the current one, which shuts
// down once its open pages are released. If the launch fails the current
// browser keeps serving for another round of pages. Must be called with
// mu held.
func (bm *BrowserManager) recycle() {
	old := bm.current
	next, err := bm.launch()
	if err != nil {
		bm.logger.Warn("browser recycle failed, keeping current browser", "err", err)
		old.opened = 0
		return
	}

	old.retired = true
	bm.current = next
	bm.logger.Debug("browser recycled", "pages", old.opened, "open", old.open)
	if old.open == 0 {
		_ = old.shutdown()
	}
}

// Close shuts down the current browser. Pages still open on it fail.
// Close is safe to call multiple times.
func (bm *BrowserManager) Close() error {
	bm.mu.Lock()
	if bm.closed {
		bm.mu.Unlock()
		return nil
	}
	bm.closed = true
	g := bm.current
	g.retired = true
	bm.mu.Unlock()

	return g.shutdown()
}

// LauncherPID returns the process ID of the current browser launcher, or
// 0 after Close.
func (bm *BrowserManager) LauncherPID() int {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	if bm.closed {
		return 0
	}
	return bm.current.launcher.PID()
}

// launch starts a browser with flags that keep background tabs from
// being throttled.
func (bm *BrowserManager) launch() (*generation, error) {
	l := launcher.New().
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-dev-shm-usage").
		Set("disable-hang-monitor").
		Leakless(true).
		Headless(true)
	if bm.bin != "" {
		l = l.Bin(bm.bin)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}
	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	bm.logger.Debug("browser launched", "pid", l.PID())
	return &generation{browser: browser, launcher: l}, nil
}
